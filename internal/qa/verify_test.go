package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify_QuoteWithCitationPasses(t *testing.T) {
	gathered := []ToolResult{{FeedbackIDs: []string{"abc12345"}}}
	answer := `Customers said "the app keeps crashing" [abc12345].`
	v := verify(answer, gathered)
	assert.True(t, v.ok)
	assert.Len(t, v.citations, 1)
}

func TestVerify_QuoteWithoutCitationFails(t *testing.T) {
	gathered := []ToolResult{{FeedbackIDs: []string{"abc12345"}}}
	answer := `Customers said "the app keeps crashing" and nothing else.`
	v := verify(answer, gathered)
	assert.False(t, v.ok)
	assert.Contains(t, v.reason, "citation")
}

func TestVerify_CitationForUnknownIDIsIgnored(t *testing.T) {
	gathered := []ToolResult{{FeedbackIDs: []string{"abc12345"}}}
	answer := `Customers said "the app keeps crashing" [zzzzzzzz].`
	v := verify(answer, gathered)
	assert.False(t, v.ok)
}

func TestVerify_NumberBackedByToolResultPasses(t *testing.T) {
	gathered := []ToolResult{{Numbers: []float64{42.0}}}
	v := verify("Volume was 42 last week.", gathered)
	assert.True(t, v.ok)
}

func TestVerify_NumberWithinToleranceOfToolResultPasses(t *testing.T) {
	gathered := []ToolResult{{Numbers: []float64{42.0}}}
	v := verify("Volume was 42.3 last week.", gathered)
	assert.True(t, v.ok)
}

func TestVerify_UnbackedNumberFails(t *testing.T) {
	gathered := []ToolResult{{Numbers: []float64{42.0}}}
	v := verify("Volume was 9000 last week.", gathered)
	assert.False(t, v.ok)
	assert.Contains(t, v.reason, "number")
}

func TestVerify_NoClaimsAlwaysPasses(t *testing.T) {
	v := verify("Overall sentiment looks steady.", nil)
	assert.True(t, v.ok)
}
