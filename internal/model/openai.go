package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/platform/retry"
)

// openAIModel adapts the teacher's openai.Client (Embed, GenerateJSON) to
// the Model interface: sentiment/toxicity via a structured-output call,
// embeddings via the native embeddings endpoint. Transient HTTP failures
// are retried through the shared backoff policy rather than the client's
// own bespoke retry loop — the same policy the vector store adapter (C4)
// uses.
type openAIModel struct {
	log     *logger.Logger
	client  Client
	version string
}

// Client is the narrow slice of the teacher's openai.Client this package
// depends on; production wiring supplies the real client, tests a fake.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
}

func NewOpenAIModel(log *logger.Logger, client Client, cfg config.Config) Model {
	version := "openai:" + cfg.OpenAIModel
	return &openAIModel{log: log.With("service", "SentimentModel"), client: client, version: version}
}

func (m *openAIModel) Version() string { return m.version }

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sentiment_class":      map[string]any{"type": "integer", "enum": []int{-1, 0, 1}},
					"sentiment_confidence": map[string]any{"type": "number"},
					"toxicity_score":       map[string]any{"type": "number"},
				},
				"required": []string{"sentiment_class", "sentiment_confidence", "toxicity_score"},
			},
		},
	},
	"required": []string{"items"},
}

func (m *openAIModel) Classify(ctx context.Context, texts []string) ([]Classification, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var numbered strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&numbered, "%d) %s\n", i, strings.ReplaceAll(t, "\n", " "))
	}

	var out map[string]any
	err := retry.Do(ctx, retry.Default(), func(ctx context.Context) error {
		result, err := m.client.GenerateJSON(ctx,
			"Classify the sentiment (-1 negative, 0 neutral, 1 positive) and toxicity (0..1) of each numbered feedback item. Return one entry per input, in order.",
			numbered.String(),
			"feedback_classification",
			classificationSchema,
		)
		if err != nil {
			return retry.MarkTransient(err)
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "sentiment model unavailable", err)
	}

	items, _ := out["items"].([]any)
	results := make([]Classification, len(texts))
	for i := range texts {
		if i >= len(items) {
			results[i] = Classification{SentimentClass: 0, SentimentConfidence: 0}
			continue
		}
		entry, _ := items[i].(map[string]any)
		results[i] = parseClassification(entry)
	}
	return results, nil
}

func parseClassification(entry map[string]any) Classification {
	c := Classification{}
	if v, ok := entry["sentiment_class"].(float64); ok {
		c.SentimentClass = int(v)
	}
	if v, ok := entry["sentiment_confidence"].(float64); ok {
		c.SentimentConfidence = v
	}
	if v, ok := entry["toxicity_score"].(float64); ok {
		score := v
		c.ToxicityScore = &score
	}
	return c
}

func (m *openAIModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out [][]float32
	err := retry.Do(ctx, retry.Default(), func(ctx context.Context) error {
		vectors, err := m.client.Embed(ctx, texts)
		if err != nil {
			return retry.MarkTransient(err)
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "embedding model unavailable", err)
	}
	return out, nil
}
