package enrichment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedback-intel/core/internal/cache"
	"github.com/feedback-intel/core/internal/db"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/model"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/queue"
	"github.com/feedback-intel/core/internal/repos"
	"github.com/feedback-intel/core/internal/vectorstore"
)

// Stages wires the four handlers to their shared dependencies. Each
// handler is idempotent on replay (spec §4.6): re-running a job whose
// effects already exist never duplicates rows; it may enqueue the next
// stage again, which is itself a no-op for rows already processed.
type Stages struct {
	log            *logger.Logger
	feedbackRepo   repos.FeedbackRepo
	annotationRepo repos.AnnotationRepo
	topicRepo      repos.TopicRepo
	poolRepo       repos.UnassignedPoolRepo
	batchRepo      repos.BatchRepo
	cache          cache.Cache
	store          *db.Service
	vectors        vectorstore.VectorStore
	sentimentModel model.Model
	q              queue.Queue

	similarityThreshold float64
	poolThreshold       int
}

func NewStages(
	log *logger.Logger,
	feedbackRepo repos.FeedbackRepo,
	annotationRepo repos.AnnotationRepo,
	topicRepo repos.TopicRepo,
	poolRepo repos.UnassignedPoolRepo,
	batchRepo repos.BatchRepo,
	c cache.Cache,
	store *db.Service,
	vectors vectorstore.VectorStore,
	sentimentModel model.Model,
	q queue.Queue,
	similarityThreshold float64,
	poolThreshold int,
) *Stages {
	return &Stages{
		log: log.With("component", "EnrichmentStages"),
		feedbackRepo: feedbackRepo, annotationRepo: annotationRepo, topicRepo: topicRepo,
		poolRepo: poolRepo, batchRepo: batchRepo, cache: c, store: store, vectors: vectors,
		sentimentModel: sentimentModel, q: q,
		similarityThreshold: similarityThreshold, poolThreshold: poolThreshold,
	}
}

func (s *Stages) feedbackForJob(ctx context.Context, job domain.Job) ([]*domain.Feedback, error) {
	dbc := dbctx.New(ctx)
	if job.BatchID != nil {
		return s.feedbackRepo.ListByBatch(dbc, *job.BatchID)
	}
	if len(job.FeedbackIDs) > 0 {
		return s.feedbackRepo.GetByIDs(dbc, job.FeedbackIDs)
	}
	return nil, nil
}

// Ingest verifies the batch's rows all persisted and enqueues annotate.
// Replaying this job simply re-verifies and re-enqueues — annotate itself
// is idempotent on a feedback-by-feedback basis, so a duplicate enqueue
// costs a no-op pass, not a duplicate row.
func (s *Stages) Ingest(ctx context.Context, job domain.Job) error {
	if job.BatchID == nil {
		return fmt.Errorf("ingest stage job missing batch id")
	}
	items, err := s.feedbackRepo.ListByBatch(dbctx.New(ctx), *job.BatchID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		s.log.Warn("ingest stage found no persisted rows for batch; skipping", "batch_id", *job.BatchID)
		return nil
	}
	next := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, BatchID: job.BatchID, EnqueuedAt: time.Now().UTC()}
	return s.q.Enqueue(ctx, next)
}

// Annotate computes sentiment/toxicity for every feedback in the job's
// scope and upserts one annotation row per feedback. HasSentiment already
// true is treated as "already annotated" and skipped, making replay a
// no-op for those rows.
func (s *Stages) Annotate(ctx context.Context, job domain.Job) error {
	items, err := s.feedbackForJob(ctx, job)
	if err != nil {
		return err
	}
	if items == nil {
		return nil
	}
	dbc := dbctx.New(ctx)

	existing, err := s.annotationRepo.GetByFeedbackIDs(dbc, idsOf(items))
	if err != nil {
		return err
	}

	var pending []*domain.Feedback
	for _, f := range items {
		if a, ok := existing[f.ID]; ok && a.HasSentiment() {
			continue
		}
		pending = append(pending, f)
	}
	if len(pending) == 0 {
		return s.cascadeToCluster(ctx, job)
	}

	texts := make([]string, len(pending))
	for i, f := range pending {
		texts[i] = f.Body
	}
	classifications, err := s.sentimentModel.Classify(ctx, texts)
	if err != nil {
		return err
	}

	for i, f := range pending {
		c := classifications[i]
		sentimentClass, confidence := c.SentimentClass, c.SentimentConfidence
		a := &domain.Annotation{
			FeedbackID:          f.ID,
			SentimentClass:      &sentimentClass,
			SentimentConfidence: &confidence,
			ToxicityScore:       c.ToxicityScore,
			ModelVersion:        s.sentimentModel.Version(),
			CreatedAt:           time.Now().UTC(),
			UpdatedAt:           time.Now().UTC(),
		}
		if existingAnn, ok := existing[f.ID]; ok {
			a.ID = existingAnn.ID
			a.TopicID = existingAnn.TopicID
			a.Embedding = existingAnn.Embedding
		}
		if err := s.annotationRepo.Upsert(dbc, a); err != nil {
			s.log.Warn("annotate: failed to upsert annotation; row skipped", "feedback_id", f.ID, "error", err)
			continue
		}
	}

	return s.cascadeToCluster(ctx, job)
}

func (s *Stages) cascadeToCluster(ctx context.Context, job domain.Job) error {
	next := domain.Job{ID: uuid.New(), Queue: domain.QueueCluster, BatchID: job.BatchID, FeedbackIDs: job.FeedbackIDs, EnqueuedAt: time.Now().UTC()}
	return s.q.Enqueue(ctx, next)
}

// Cluster computes an embedding for each feedback without one, upserts it
// into the vector store, and assigns a topic: the topic of the nearest
// already-assigned feedback within the similarity threshold, else added
// to the unassigned pool,
// spawning a new topic once the pool exceeds the threshold (spec §4.6).
// HasEmbedding already true is treated as "already clustered" and skipped.
func (s *Stages) Cluster(ctx context.Context, job domain.Job) error {
	items, err := s.feedbackForJob(ctx, job)
	if err != nil {
		return err
	}
	if items == nil {
		return s.cascadeToReports(ctx, job)
	}
	dbc := dbctx.New(ctx)

	existing, err := s.annotationRepo.GetByFeedbackIDs(dbc, idsOf(items))
	if err != nil {
		return err
	}

	var pending []*domain.Feedback
	for _, f := range items {
		a, ok := existing[f.ID]
		if ok && a.HasEmbedding() {
			continue
		}
		if !ok || !a.HasSentiment() {
			// annotate hasn't landed for this row yet; cluster will catch
			// it on the next pass once annotate cascades again.
			continue
		}
		pending = append(pending, f)
	}
	if len(pending) == 0 {
		return s.cascadeToReports(ctx, job)
	}

	texts := make([]string, len(pending))
	for i, f := range pending {
		texts[i] = f.Body
	}
	embeddings, err := s.sentimentModel.Embed(ctx, texts)
	if err != nil {
		return err
	}

	for i, f := range pending {
		embedding := embeddings[i]
		if err := s.vectors.Upsert(ctx, f.ID, embedding); err != nil {
			s.log.Warn("cluster: vector store upsert failed; annotation embedding still recorded", "feedback_id", f.ID, "error", err)
		}

		a := existing[f.ID]
		a.Embedding = domain.EmbeddingVector(embedding)
		if err := s.annotationRepo.Upsert(dbc, a); err != nil {
			s.log.Warn("cluster: failed to persist embedding", "feedback_id", f.ID, "error", err)
			continue
		}

		topicID, err := s.assignTopic(ctx, dbc, f.ID, embedding)
		if err != nil {
			s.log.Warn("cluster: topic assignment failed", "feedback_id", f.ID, "error", err)
			continue
		}
		if topicID != nil {
			if err := s.annotationRepo.SetTopic(dbc, f.ID, topicID); err != nil {
				s.log.Warn("cluster: failed to set topic", "feedback_id", f.ID, "error", err)
			}
		}
	}

	return s.cascadeToReports(ctx, job)
}

// assignTopic queries the vector store for up to five nearest feedback
// items and returns the topic of the first one (other than the feedback
// itself) whose similarity clears the threshold and which already has a
// topic. Otherwise the feedback joins the
// unassigned pool, and a new topic is synthesised once the pool grows
// past poolThreshold.
func (s *Stages) assignTopic(ctx context.Context, dbc dbctx.Context, feedbackID uuid.UUID, embedding []float32) (*uint, error) {
	nearest, err := s.vectors.Query(ctx, embedding, nil, nil, 5)
	if err != nil {
		s.log.Warn("cluster: vector store query failed; falling back to unassigned pool", "error", err)
		nearest = nil
	}
	for _, match := range nearest {
		if match.FeedbackID == feedbackID {
			continue
		}
		if match.Score < s.similarityThreshold {
			continue
		}
		ann, err := s.annotationRepo.GetByFeedbackID(dbc, match.FeedbackID)
		if err != nil || ann == nil || ann.TopicID == nil {
			continue
		}
		return ann.TopicID, nil
	}

	if err := s.poolRepo.Add(dbc, feedbackID); err != nil {
		return nil, err
	}
	poolSize, err := s.poolRepo.Count(dbc)
	if err != nil {
		return nil, err
	}
	if poolSize <= int64(s.poolThreshold) {
		return nil, nil
	}
	return s.spawnTopicFromPool(ctx, dbc)
}

func (s *Stages) spawnTopicFromPool(ctx context.Context, dbc dbctx.Context) (*uint, error) {
	memberIDs, err := s.poolRepo.DrainAll(dbc)
	if err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return nil, nil
	}
	members, err := s.feedbackRepo.GetByIDs(dbc, memberIDs)
	if err != nil {
		return nil, err
	}
	keywords := topKeywords(members, 5)
	label := strings.Join(keywords, ", ")
	if label == "" {
		label = "new topic"
	}
	topic := &domain.Topic{Label: label, Keywords: keywords, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.topicRepo.Create(dbc, topic); err != nil {
		return nil, err
	}
	if _, err := s.annotationRepo.SetTopicForFeedbackIDs(dbc, memberIDs, topic.ID); err != nil {
		return nil, err
	}
	return &topic.ID, nil
}

// topKeywords picks the n most frequent normalised words across a set of
// feedback bodies, a cheap stand-in for the "synthesised label" the
// spec leaves unpinned.
func topKeywords(items []*domain.Feedback, n int) []string {
	freq := map[string]int{}
	for _, f := range items {
		for _, w := range strings.Fields(f.NormalizedText) {
			if len(w) < 4 {
				continue
			}
			freq[w]++
		}
	}
	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, kv{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.word
	}
	return out
}

func (s *Stages) cascadeToReports(ctx context.Context, job domain.Job) error {
	next := domain.Job{ID: uuid.New(), Queue: domain.QueueReports, BatchID: job.BatchID, FeedbackIDs: job.FeedbackIDs, EnqueuedAt: time.Now().UTC()}
	return s.q.Enqueue(ctx, next)
}

// Reports invalidates every analytics cache entry (the batch's covered
// window is cheap to over-invalidate given a ~5 minute TTL, so the stage
// clears the whole analytics prefix rather than tracking windows
// precisely), refreshes the materialised view, and marks the batch
// complete.
func (s *Stages) Reports(ctx context.Context, job domain.Job) error {
	s.cache.DeleteByPrefix(ctx, cache.AnalyticsPrefix(""))

	if err := s.store.RefreshDailyAggregates(); err != nil {
		s.log.Warn("reports stage: materialized view refresh failed", "error", err)
	}

	if job.BatchID != nil {
		if err := s.batchRepo.SetStatus(dbctx.New(ctx), *job.BatchID, "complete"); err != nil {
			s.log.Warn("reports stage: failed to mark batch complete", "batch_id", *job.BatchID, "error", err)
		}
	}
	return nil
}

// Handler looks up the stage method for a named queue, letting callers
// (the worker CLI's --queues flag) build a Pool for an arbitrary subset of
// queues without switching on the name themselves.
func (s *Stages) Handler(name domain.QueueName) (Handler, bool) {
	switch name {
	case domain.QueueIngest:
		return s.Ingest, true
	case domain.QueueAnnotate:
		return s.Annotate, true
	case domain.QueueCluster:
		return s.Cluster, true
	case domain.QueueReports:
		return s.Reports, true
	default:
		return nil, false
	}
}

func idsOf(items []*domain.Feedback) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, f := range items {
		out[i] = f.ID
	}
	return out
}
