package qa

import (
	"regexp"
	"strconv"
	"strings"
)

// verdict is the verifier's finding: ok=false means the answer failed one
// of spec §4.11's two invariants and should carry a warning rather than be
// silently trusted.
type verdict struct {
	ok        bool
	reason    string
	citations []Citation
}

var citationPattern = regexp.MustCompile(`\[([a-zA-Z0-9-]{8,})\]`)

// quotePattern finds double-quoted spans, the shape a direct feedback
// quote takes in the model's answer text.
var quotePattern = regexp.MustCompile(`"([^"]{8,})"`)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

const numericTolerance = 0.5

// verify enforces invariants 1 and 2 of spec §4.11: every direct quote
// must carry a feedback-id citation, and every numeric claim must match a
// tool-output value within tolerance.
func verify(answer string, gathered []ToolResult) verdict {
	citations := extractCitations(answer, gathered)

	if missing := unattributedQuotes(answer, citations); missing > 0 {
		return verdict{ok: false, reason: "answer contains a quote with no feedback-id citation", citations: citations}
	}

	allNumbers := map[string]bool{}
	for _, r := range gathered {
		for _, n := range r.Numbers {
			allNumbers[formatNumber(n)] = true
		}
	}
	// Citation markers are ids, not numeric claims: strip them before
	// scanning for numbers.
	for _, tok := range numberPattern.FindAllString(citationPattern.ReplaceAllString(answer, ""), -1) {
		claimed, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if !withinToleranceOfAny(claimed, allNumbers) {
			return verdict{ok: false, reason: "answer states a number not backed by any tool result", citations: citations}
		}
	}
	return verdict{ok: true, citations: citations}
}

func extractCitations(answer string, gathered []ToolResult) []Citation {
	known := map[string]bool{}
	for _, r := range gathered {
		for _, id := range r.FeedbackIDs {
			known[id] = true
		}
	}
	var out []Citation
	seen := map[string]bool{}
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		id := m[1]
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Citation{FeedbackID: id})
	}
	return out
}

// unattributedQuotes counts quoted spans in answer that aren't followed
// (within a short distance) by a bracketed citation.
func unattributedQuotes(answer string, citations []Citation) int {
	quotes := quotePattern.FindAllStringIndex(answer, -1)
	if len(quotes) == 0 {
		return 0
	}
	if len(citations) == 0 {
		return len(quotes)
	}
	missing := 0
	for _, span := range quotes {
		tail := answer[span[1]:]
		if len(tail) > 40 {
			tail = tail[:40]
		}
		if !citationPattern.MatchString(tail) {
			missing++
		}
	}
	return missing
}

func withinToleranceOfAny(claimed float64, known map[string]bool) bool {
	for k := range known {
		v, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		if diff := v - claimed; diff < numericTolerance && diff > -numericTolerance {
			return true
		}
	}
	return false
}

func formatNumber(n float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(n, 'f', 4, 64), "0"), ".")
}
