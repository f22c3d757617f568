package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/platform/retry"
)

// VectorStore exposes exactly the two operations spec §4.4 names: upsert a
// feedback item's embedding, and query for nearest examples filtered by
// topic and/or sentiment. It adapts the teacher's pinecone.VectorStore
// (Upsert, QueryIDs) almost directly — the namespace-prefix-qualification
// and host-resolution-fallback idiom carries over unchanged, since a single
// feedback-analytics index has no tenant dimension to namespace by.
// Match is one nearest-neighbour result: the feedback id and its cosine
// similarity score against the query embedding, as returned natively by the
// underlying index (QueryMatch.Score).
type Match struct {
	FeedbackID uuid.UUID
	Score      float64
}

type VectorStore interface {
	Upsert(ctx context.Context, feedbackID uuid.UUID, embedding []float32) error
	Query(ctx context.Context, embedding []float32, topicFilter *uint, sentimentFilter *int, k int) ([]Match, error)
}

type Store struct {
	log             *logger.Logger
	client          Client
	indexName       string
	namespacePrefix string

	mu   sync.Mutex
	host string
}

// New records configHost; when it is empty, the index host is resolved
// lazily via DescribeIndex on first use and cached, mirroring the
// teacher's lazy-resolve-then-cache pattern.
func New(log *logger.Logger, client Client, indexName, configHost, namespacePrefix string) *Store {
	if strings.TrimSpace(namespacePrefix) == "" {
		namespacePrefix = "fi"
	}
	return &Store{
		log:             log.With("service", "VectorStore"),
		client:          client,
		indexName:       indexName,
		namespacePrefix: namespacePrefix,
		host:            strings.TrimSpace(configHost),
	}
}

func (s *Store) namespace() string { return s.namespacePrefix + "-feedback" }

func (s *Store) resolveHost(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host != "" {
		return s.host, nil
	}
	desc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return "", fmt.Errorf("resolve vector store host: %w", err)
	}
	s.host = desc.Host
	return s.host, nil
}

func (s *Store) Upsert(ctx context.Context, feedbackID uuid.UUID, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for feedback %s", feedbackID)
	}
	return retry.Do(ctx, retry.Default(), func(ctx context.Context) error {
		host, err := s.resolveHost(ctx)
		if err != nil {
			return retry.MarkTransient(err)
		}
		_, err = s.client.UpsertVectors(ctx, host, UpsertRequest{
			Namespace: s.namespace(),
			Vectors: []Vector{{
				ID:     feedbackID.String(),
				Values: embedding,
			}},
		})
		if err != nil {
			return retry.MarkTransient(err)
		}
		return nil
	})
}

// Query returns matches ranked by cosine similarity to embedding, restricted
// to the given topic/sentiment filters when set. Cosine similarity is the
// vector store's native ranking metric, resolved here as the spec's Open
// Question on cluster-stage similarity (SPEC_FULL.md §10). The caller is
// responsible for comparing Match.Score against its own threshold; the
// store does not filter by score itself.
func (s *Store) Query(ctx context.Context, embedding []float32, topicFilter *uint, sentimentFilter *int, k int) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if k <= 0 {
		k = 10
	}

	filter := map[string]any{}
	if topicFilter != nil {
		filter["topic_id"] = map[string]any{"$eq": *topicFilter}
	}
	if sentimentFilter != nil {
		filter["sentiment_class"] = map[string]any{"$eq": *sentimentFilter}
	}
	if len(filter) == 0 {
		filter = nil
	}

	var resp *QueryResponse
	err := retry.Do(ctx, retry.Default(), func(ctx context.Context) error {
		host, err := s.resolveHost(ctx)
		if err != nil {
			return retry.MarkTransient(err)
		}
		r, err := s.client.Query(ctx, host, QueryRequest{
			Namespace: s.namespace(),
			Vector:    embedding,
			TopK:      k,
			Filter:    filter,
		})
		if err != nil {
			return retry.MarkTransient(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			s.log.Warn("vector store returned non-uuid match id, skipping", "id", m.ID)
			continue
		}
		matches = append(matches, Match{FeedbackID: id, Score: m.Score})
	}
	return matches, nil
}
