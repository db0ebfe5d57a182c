package changelog

import (
	"regexp"

	"github.com/fatih/color"
)

var (
	noChangesLine = regexp.MustCompile(`(?m)^## No Changes Found$`)
	generatedOn   = regexp.MustCompile(`\*Generated on (.*?)\*`)
	boldSpan      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicSpan    = regexp.MustCompile(`\*([^*\s][^*\n]*?)\*`)

	boldFmt      = color.New(color.Bold).SprintFunc()
	italicFmt    = color.New(color.Italic).SprintFunc()
	dimFmt       = color.New(color.Faint).SprintFunc()
	noChangesFmt = color.New(color.FgRed, color.Bold).SprintFunc()
)

// FormatTerminal styles the handful of markdown constructs summaries use.
// Output is plain text with markers removed when color.NoColor is set.
func FormatTerminal(markdown string) string {
	s := noChangesLine.ReplaceAllStringFunc(markdown, func(string) string {
		return noChangesFmt("NO CHANGELOG")
	})
	s = generatedOn.ReplaceAllStringFunc(s, func(m string) string {
		return dimFmt("Generated on " + generatedOn.FindStringSubmatch(m)[1])
	})
	s = boldSpan.ReplaceAllStringFunc(s, func(m string) string {
		return boldFmt(boldSpan.FindStringSubmatch(m)[1])
	})
	s = italicSpan.ReplaceAllStringFunc(s, func(m string) string {
		return italicFmt(italicSpan.FindStringSubmatch(m)[1])
	})
	return s
}
