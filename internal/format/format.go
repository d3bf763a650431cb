// Package format post-processes model output before it is returned to the
// chat client.
package format

import (
	"regexp"
	"strings"
)

// Rule is a single emphasis pass over the response text.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

const bold = "**${1}**"

// Rules are applied in order, each exactly once over the whole string.
// Earlier emphasis is not protected from later rules, so overlapping
// matches can produce nested markers.
var Rules = []Rule{
	// Time and dates.
	{Name: "relative_span", Pattern: regexp.MustCompile(`(?i)(\d+\s*(?:days?|weeks?|months?|years?))`), Replacement: bold},
	{Name: "numeric_date", Pattern: regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`), Replacement: bold},
	{Name: "long_date", Pattern: regexp.MustCompile(`(?i)(\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4})`), Replacement: bold},

	// Money.
	{Name: "dollar_amount", Pattern: regexp.MustCompile(`(?i)(\$\s*\d+(?:,\d{3})*(?:\.\d{2})?)`), Replacement: bold},
	{Name: "spelled_currency", Pattern: regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{2})?\s*(?:dollars?|USD))`), Replacement: bold},

	{Name: "percentage", Pattern: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?%)`), Replacement: bold},

	// Keywords. The colon is part of the match but not of the capture.
	{Name: "policy_keyword", Pattern: regexp.MustCompile(`(?i)(policy|requirement|regulation|rule|guideline):`), Replacement: bold},
	{Name: "entitlement_keyword", Pattern: regexp.MustCompile(`(?i)(entitled to|eligible for|qualify for|benefit):`), Replacement: bold},
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	bulletGlyph    = regexp.MustCompile(`(?m)^[•·]\s*`)
)

// Format trims the text, collapses runs of blank lines, applies the emphasis
// rules and normalizes bullet glyphs to "- ".
func Format(raw string) string {
	s := strings.TrimSpace(raw)
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	for _, r := range Rules {
		s = r.Pattern.ReplaceAllString(s, r.Replacement)
	}
	return bulletGlyph.ReplaceAllString(s, "- ")
}
