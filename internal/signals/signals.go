// Package signals holds the small completion-phrase pattern tables shared by
// internal/memory and internal/initiative, grounded on the teacher's
// DefaultPatterns table style in internal/extraction/heuristic.go:
// compiled regexes matched in order, first match wins.
package signals

import (
	"regexp"
	"strings"
)

var completionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthis is done\b`),
	regexp.MustCompile(`(?i)\bshipped\b`),
	regexp.MustCompile(`(?i)\bmerged (and )?deployed\b`),
	regexp.MustCompile(`(?i)\bmarking (this|it) (as )?complete\b`),
	regexp.MustCompile(`(?i)\binitiative (is )?complete\b`),
	regexp.MustCompile(`(?i)\ball (tasks|work) (is |are )?(done|finished|complete)\b`),
}

// DetectCompletionSignal reports whether text contains a recognizable
// "this workstream is finished" phrase (spec §6 save_* "completion-signal
// flag").
func DetectCompletionSignal(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, p := range completionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
