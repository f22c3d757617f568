// Package model declares the external model interface the annotate and
// cluster stages treat as a pure function with a declared version tag
// (spec §4.6): sentiment/toxicity classification and embedding generation.
// The core never trains these models, only consumes their outputs.
package model

import "context"

type Classification struct {
	SentimentClass      int
	SentimentConfidence float64
	ToxicityScore       *float64
}

type Model interface {
	// Version is the tag stamped onto every annotation this model produces.
	Version() string

	// Classify returns one Classification per input text, same order.
	Classify(ctx context.Context, texts []string) ([]Classification, error)

	// Embed returns one fixed-dimensional vector per input text, same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
