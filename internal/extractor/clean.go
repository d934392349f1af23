package extractor

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine   = regexp.MustCompile(`^\s*\d+\s*$`)
	copyrightLine    = regexp.MustCompile(`(?i)(©|\bcopyright\b)`)
	confidentialLine = regexp.MustCompile(`(?i)confidential`)

	whitespaceRun = regexp.MustCompile(`\s+`)
	mergedWords   = regexp.MustCompile(`([a-z])([A-Z])`)
	runOnSentence = regexp.MustCompile(`([.!?])([A-Z])`)
)

// CleanText removes common PDF extraction artifacts from page text.
//
// Line filters run first, while line structure still exists: standalone page
// numbers, copyright notices, and confidentiality banners are dropped. The
// remaining text is then collapsed to single spaces and words or sentences
// glued together by the extractor are separated.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		switch {
		case pageNumberLine.MatchString(line):
		case copyrightLine.MatchString(line):
		case confidentialLine.MatchString(line):
		default:
			kept = append(kept, line)
		}
	}

	out := whitespaceRun.ReplaceAllString(strings.Join(kept, "\n"), " ")
	out = mergedWords.ReplaceAllString(out, "${1} ${2}")
	out = runOnSentence.ReplaceAllString(out, "${1} ${2}")
	return strings.TrimSpace(out)
}
