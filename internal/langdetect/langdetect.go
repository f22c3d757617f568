// Package langdetect implements the best-effort language heuristic spec
// §4.5 calls for: cheap, never rejects on failure to detect. No library in
// the example pack covers language identification; a whole-body statistical
// model would be disproportionate to "best-effort" for a single English-
// or-not gate, so this is the one other deliberately stdlib-only package,
// grounded by the spec's own wording rather than by imitation.
package langdetect

import "strings"

// commonEnglishStopwords is a small, cheap signal — presence of several of
// these common short words is enough to call a body "en" without running
// a real classifier.
var commonEnglishStopwords = []string{
	" the ", " and ", " is ", " was ", " this ", " that ", " with ", " for ",
	" you ", " are ", " have ", " not ", " but ", " very ",
}

// Detect returns a BCP-47-ish tag, or "" when the heuristic can't decide —
// callers must treat "" as "unknown", never as a rejection.
func Detect(normalizedText string) string {
	if normalizedText == "" {
		return ""
	}
	padded := " " + normalizedText + " "
	hits := 0
	for _, w := range commonEnglishStopwords {
		if strings.Contains(padded, w) {
			hits++
			if hits >= 2 {
				return "en"
			}
		}
	}

	asciiLetters, letters := 0, 0
	for _, r := range normalizedText {
		if r >= 'a' && r <= 'z' {
			asciiLetters++
			letters++
		} else if isLetter(r) {
			letters++
		}
	}
	if letters == 0 {
		return ""
	}
	if float64(asciiLetters)/float64(letters) > 0.9 {
		return "en"
	}
	return ""
}

// IsEnglish reports whether tag should be treated as English for the
// "English-only ingest" feature flag; an undetected ("") tag is treated as
// English so detection failure never drops a row (spec §4.5).
func IsEnglish(tag string) bool {
	return tag == "" || tag == "en"
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}
