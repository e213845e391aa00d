package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longBody = "The checkout service returned HTTP 500 for all users in the EU region for roughly twenty minutes before on-call rolled back the release."

func TestSplitSections_NoHeading(t *testing.T) {
	secs := SplitSections("  just some incident text with no headings at all  ")

	require.Len(t, secs, 1)
	assert.Equal(t, "Incident 1", secs[0].Title)
	assert.Equal(t, "just some incident text with no headings at all", secs[0].Body)
}

func TestSplitSections_EmptyInput(t *testing.T) {
	secs := SplitSections("")

	require.Len(t, secs, 1)
	assert.Equal(t, "Incident 1", secs[0].Title)
	assert.Equal(t, "", secs[0].Body)
}

func TestSplitSections_TwoHeadings(t *testing.T) {
	doc := "Test Case 1: login fails\n" + longBody + "\nScenario 2 checkout broken\n" + longBody

	secs := SplitSections(doc)

	require.Len(t, secs, 2)
	assert.Equal(t, "Test Case 1: Login Fails", secs[0].Title)
	assert.Equal(t, longBody, secs[0].Body)
	assert.Equal(t, "Scenario 2 Checkout Broken", secs[1].Title)
	assert.Equal(t, longBody, secs[1].Body)
}

func TestSplitSections_CaseInsensitiveHeadings(t *testing.T) {
	doc := "TEST CASE 1\n" + longBody + "\ntest case 2\n" + longBody

	secs := SplitSections(doc)
	require.Len(t, secs, 2)
}

func TestSplitSections_ShortBodyAnnotated(t *testing.T) {
	doc := "Test Case 1: brief\nshort body\nTest Case 2: full\n" + longBody

	secs := SplitSections(doc)

	require.Len(t, secs, 2)
	assert.Equal(t, "short body\n(Note: Minimal text detected.)", secs[0].Body)
	assert.False(t, strings.Contains(secs[1].Body, "Minimal text"))
}

func TestSplitSections_EmptyBodyAnnotated(t *testing.T) {
	doc := "Test Case 1: heading only"

	secs := SplitSections(doc)

	require.Len(t, secs, 1)
	assert.Equal(t, "(Note: Minimal text detected.)", secs[0].Body)
}

func TestSplitSections_HeadingDigitsGlued(t *testing.T) {
	doc := "Test Case1(email escalated)\n" + longBody

	secs := SplitSections(doc)

	require.Len(t, secs, 1)
	assert.Equal(t, "Test Case 1 (Email Escalated)", secs[0].Title)
}
