// Package textnorm implements the cheap, deterministic text normalisation
// the ingestion pipeline applies to every feedback body before dedup
// comparison and persistence (spec §3: "normalised text (lowercased,
// whitespace-collapsed)"). No third-party normalisation library in the
// example pack targets this narrow a transform more cheaply than the
// standard library's strings/unicode primitives, so this one package is
// built on stdlib — the one deliberate exception to the "no bare stdlib"
// rule, justified in the grounding ledger.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize lowercases and collapses runs of whitespace to a single space,
// trimming the result.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		sb.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(sb.String())
}
