package model

import (
	"context"
	"math"
	"strings"

	"github.com/feedback-intel/core/internal/platform/logger"
)

// lexiconModel is the cheap, local alternative selected when the
// HF-sentiment feature flag is off (spec §6: "feature flags: HF-sentiment
// vs lexicon sentiment"). It never calls out to a model endpoint, so it
// never fails transiently — useful for local development and tests.
type lexiconModel struct {
	log *logger.Logger
}

func NewLexiconModel(log *logger.Logger) Model {
	return &lexiconModel{log: log.With("service", "LexiconSentimentModel")}
}

func (m *lexiconModel) Version() string { return "lexicon:v1" }

var positiveWords = map[string]bool{
	"great": true, "good": true, "excellent": true, "love": true, "amazing": true,
	"fantastic": true, "wonderful": true, "happy": true, "best": true, "perfect": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "hate": true, "awful": true, "worst": true,
	"broken": true, "poor": true, "disappointing": true, "horrible": true, "useless": true,
}

var toxicWords = map[string]bool{
	"idiot": true, "stupid": true, "trash": true, "garbage": true,
}

func (m *lexiconModel) Classify(ctx context.Context, texts []string) ([]Classification, error) {
	out := make([]Classification, len(texts))
	for i, t := range texts {
		out[i] = classifyOne(t)
	}
	return out, nil
}

func classifyOne(text string) Classification {
	words := strings.Fields(strings.ToLower(text))
	pos, neg, tox, total := 0, 0, 0, len(words)
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'")
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
		if toxicWords[w] {
			tox++
		}
	}
	class := 0
	switch {
	case pos > neg:
		class = 1
	case neg > pos:
		class = -1
	}
	confidence := 0.5
	if total > 0 {
		confidence = float64(pos+neg) / float64(total)
		if confidence > 1 {
			confidence = 1
		}
		if confidence < 0.5 {
			confidence = 0.5
		}
	}
	var toxicity *float64
	if total > 0 {
		score := float64(tox) / float64(total)
		toxicity = &score
	}
	return Classification{SentimentClass: class, SentimentConfidence: confidence, ToxicityScore: toxicity}
}

// Embed produces a deterministic low-dimensional bag-of-words vector so
// the cluster stage has something to upsert and query against without a
// remote embedding call.
func (m *lexiconModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	const dims = 32
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, dims)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := hashString(w)
			vec[h%dims] += 1
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func hashString(s string) int {
	h := 2166136261
	for i := 0; i < len(s); i++ {
		h = (h ^ int(s[i])) * 16777619
	}
	if h < 0 {
		h = -h
	}
	return h
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}
