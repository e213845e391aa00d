// Package pipeline implements the incident analysis pipeline: document
// normalization, section splitting, per-section LLM analysis with bounded
// retry, and coercion of model output into the fixed analysis schema.
package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	digitParenRe = regexp.MustCompile(`(\d)\(`)
	caseDigitRe  = regexp.MustCompile(`(?i)\b(case)(\d)`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// NormalizeDocument cleans extracted document text ahead of section
// splitting. Unlike Normalize it preserves line structure, which the heading
// detector depends on: intra-line whitespace runs collapse to single spaces,
// lines are trimmed, and runs of blank lines collapse to one.
func NormalizeDocument(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = spaceRunRe.ReplaceAllString(raw, " ")

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out := strings.Join(lines, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// NormalizeTitle cleans a section heading: inserts a space between a digit
// and a following open-parenthesis and between the word "Case" and a
// following digit, then capitalizes each token. Tokens that are entirely
// uppercase and longer than one character are preserved as acronyms
// ("L1", "PDF").
func NormalizeTitle(raw string) string {
	s := Normalize(raw)
	if s == "" {
		return ""
	}
	s = digitParenRe.ReplaceAllString(s, "$1 (")
	s = caseDigitRe.ReplaceAllString(s, "$1 $2")

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if len(tok) > 1 && tok == strings.ToUpper(tok) {
			continue
		}
		tokens[i] = capitalizeToken(tok)
	}
	return strings.Join(tokens, " ")
}

// capitalizeToken uppercases the first letter of a token and lowercases the
// rest, skipping leading punctuation such as "(".
func capitalizeToken(tok string) string {
	runes := []rune(tok)
	capped := false
	for i, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		if capped {
			runes[i] = unicode.ToLower(r)
		} else {
			runes[i] = unicode.ToUpper(r)
			capped = true
		}
	}
	return string(runes)
}
