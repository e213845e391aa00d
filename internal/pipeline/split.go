package pipeline

import (
	"regexp"
	"strings"

	"github.com/innoventors/incident-cli/internal/model"
)

// sectionHeadingRe matches an incident heading ("Test Case 3", "Scenario 12")
// with any trailing same-line text retained as part of the title.
var sectionHeadingRe = regexp.MustCompile(`(?i)(Test\s*Case|Scenario)\s*\d+[^\n]*`)

// minSectionBody is the body length below which a section is flagged as
// having minimal text.
const minSectionBody = 80

// minimalTextNote is appended to bodies under minSectionBody. Short sections
// are kept rather than dropped so every detected incident yields a result.
const minimalTextNote = "(Note: Minimal text detected.)"

// fallbackTitle is used when a document contains no recognizable heading.
const fallbackTitle = "Incident 1"

// SplitSections partitions document text into ordered (title, body) sections
// by heading detection. It always returns at least one section: input with
// no recognizable heading becomes a single section wrapping the whole
// trimmed document.
func SplitSections(content string) []model.Section {
	locs := sectionHeadingRe.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []model.Section{{
			Title: fallbackTitle,
			Body:  strings.TrimSpace(content),
		}}
	}

	sections := make([]model.Section, 0, len(locs))
	for i, loc := range locs {
		title := content[loc[0]:loc[1]]

		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(content[loc[1]:end])

		if len(body) < minSectionBody {
			if body == "" {
				body = minimalTextNote
			} else {
				body += "\n" + minimalTextNote
			}
		}

		sections = append(sections, model.Section{
			Title: NormalizeTitle(title),
			Body:  body,
		})
	}
	return sections
}
