package model

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedback-intel/core/internal/platform/logger"
)

func testLexicon(t *testing.T) Model {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return NewLexiconModel(log)
}

func TestLexicon_Classify_PositiveText(t *testing.T) {
	m := testLexicon(t)
	out, err := m.Classify(context.Background(), []string{"this is great, an amazing and wonderful product"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].SentimentClass)
}

func TestLexicon_Classify_NegativeText(t *testing.T) {
	m := testLexicon(t)
	out, err := m.Classify(context.Background(), []string{"this is terrible, broken and awful"})
	require.NoError(t, err)
	assert.Equal(t, -1, out[0].SentimentClass)
}

func TestLexicon_Classify_NeutralTextHasNoSignal(t *testing.T) {
	m := testLexicon(t)
	out, err := m.Classify(context.Background(), []string{"the package arrived on tuesday"})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].SentimentClass)
}

func TestLexicon_Classify_ToxicWordRaisesToxicityScore(t *testing.T) {
	m := testLexicon(t)
	out, err := m.Classify(context.Background(), []string{"you are an idiot"})
	require.NoError(t, err)
	require.NotNil(t, out[0].ToxicityScore)
	assert.Greater(t, *out[0].ToxicityScore, 0.0)
}

func TestLexicon_Embed_IsDeterministicAndNormalized(t *testing.T) {
	m := testLexicon(t)
	a, err := m.Embed(context.Background(), []string{"great support team"})
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), []string{"great support team"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var sumSq float64
	for _, x := range a[0] {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 0.001)
}

func TestLexicon_Version(t *testing.T) {
	m := testLexicon(t)
	assert.Equal(t, "lexicon:v1", m.Version())
}
