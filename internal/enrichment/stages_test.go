package enrichment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/model"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
	"github.com/feedback-intel/core/internal/vectorstore"
)

type fakeFeedbackRepo struct {
	byBatch map[uuid.UUID][]*domain.Feedback
	byID    map[uuid.UUID]*domain.Feedback
}

func (f *fakeFeedbackRepo) Create(dbc dbctx.Context, fb *domain.Feedback) error { return nil }
func (f *fakeFeedbackRepo) CreateMany(dbc dbctx.Context, items []*domain.Feedback) error {
	return nil
}
func (f *fakeFeedbackRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Feedback, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Feedback, error) {
	out := make([]*domain.Feedback, 0, len(ids))
	for _, id := range ids {
		if fb, ok := f.byID[id]; ok {
			out = append(out, fb)
		}
	}
	return out, nil
}
func (f *fakeFeedbackRepo) ExistingDedupKeysForBatch(dbc dbctx.Context, batchID uuid.UUID) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*domain.Feedback, error) {
	return f.byBatch[batchID], nil
}
func (f *fakeFeedbackRepo) CountSince(dbc dbctx.Context, since time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeFeedbackRepo) StreamFilter(dbc dbctx.Context, filter repos.ExportFilter, fn func(*domain.Feedback, *domain.Annotation) error) error {
	return nil
}
func (f *fakeFeedbackRepo) ListByTopic(dbc dbctx.Context, topicID uint, page, pageSize int) ([]*domain.Feedback, int64, error) {
	return nil, 0, nil
}
func (f *fakeFeedbackRepo) CountOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeFeedbackRepo) SoftDeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAnnotationRepo struct {
	mu          sync.Mutex
	byFeedback  map[uuid.UUID]*domain.Annotation
	upsertCalls int
}

func newFakeAnnotationRepo() *fakeAnnotationRepo {
	return &fakeAnnotationRepo{byFeedback: map[uuid.UUID]*domain.Annotation{}}
}

func (r *fakeAnnotationRepo) Upsert(dbc dbctx.Context, a *domain.Annotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.byFeedback[a.FeedbackID] = a
	return nil
}
func (r *fakeAnnotationRepo) GetByFeedbackID(dbc dbctx.Context, feedbackID uuid.UUID) (*domain.Annotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byFeedback[feedbackID], nil
}
func (r *fakeAnnotationRepo) GetByFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID) (map[uuid.UUID]*domain.Annotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]*domain.Annotation{}
	for _, id := range feedbackIDs {
		if a, ok := r.byFeedback[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}
func (r *fakeAnnotationRepo) SetTopic(dbc dbctx.Context, feedbackID uuid.UUID, topicID *uint) error {
	return nil
}
func (r *fakeAnnotationRepo) SetTopicForFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID, topicID uint) (int64, error) {
	return 0, nil
}
func (r *fakeAnnotationRepo) ReassignTopic(dbc dbctx.Context, fromTopicID, toTopicID uint) (int64, error) {
	return 0, nil
}
func (r *fakeAnnotationRepo) CountByTopic(dbc dbctx.Context, topicID uint) (int64, error) {
	return 0, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []domain.Job
}

func (q *fakeQueue) Enqueue(ctx context.Context, job domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, job)
	return nil
}
func (q *fakeQueue) Dequeue(ctx context.Context, queue domain.QueueName, visibilityTimeoutSeconds int) (*domain.Job, bool, error) {
	return nil, false, nil
}
func (q *fakeQueue) Ack(ctx context.Context, queue domain.QueueName, jobID string) error { return nil }
func (q *fakeQueue) Nack(ctx context.Context, queue domain.QueueName, job domain.Job, maxAttempts int) error {
	return nil
}
func (q *fakeQueue) DeadLetterLen(ctx context.Context, queue domain.QueueName) (int64, error) {
	return 0, nil
}

type fakeSentimentModel struct {
	mu            sync.Mutex
	classifyCalls int
}

func (m *fakeSentimentModel) Version() string { return "fake-v1" }
func (m *fakeSentimentModel) Classify(ctx context.Context, texts []string) ([]model.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifyCalls++
	out := make([]model.Classification, len(texts))
	for i := range texts {
		out[i] = model.Classification{SentimentClass: 1, SentimentConfidence: 0.9}
	}
	return out, nil
}
func (m *fakeSentimentModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func newTestStages(t *testing.T, feedback *fakeFeedbackRepo, ann *fakeAnnotationRepo, q *fakeQueue, sm *fakeSentimentModel) *Stages {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return NewStages(log, feedback, ann, nil, nil, nil, nil, nil, nil, sm, q, 0.8, 5)
}

type fakeVectorStore struct {
	matches []vectorstore.Match
}

func (v *fakeVectorStore) Upsert(ctx context.Context, feedbackID uuid.UUID, embedding []float32) error {
	return nil
}
func (v *fakeVectorStore) Query(ctx context.Context, embedding []float32, topicFilter *uint, sentimentFilter *int, k int) ([]vectorstore.Match, error) {
	return v.matches, nil
}

type fakeTopicRepo struct {
	created []*domain.Topic
}

func (r *fakeTopicRepo) Create(dbc dbctx.Context, t *domain.Topic) error {
	t.ID = uint(len(r.created) + 1)
	r.created = append(r.created, t)
	return nil
}
func (r *fakeTopicRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Topic, error) { return nil, nil }
func (r *fakeTopicRepo) Exists(dbc dbctx.Context, id uint) (bool, error)           { return false, nil }
func (r *fakeTopicRepo) List(dbc dbctx.Context) ([]*domain.Topic, error)           { return nil, nil }
func (r *fakeTopicRepo) Relabel(dbc dbctx.Context, id uint, label string, keywords domain.StringSlice) (*domain.Topic, error) {
	return nil, nil
}
func (r *fakeTopicRepo) Delete(dbc dbctx.Context, id uint) error { return nil }
func (r *fakeTopicRepo) ListWithCounts(dbc dbctx.Context, minFeedbackCount int) ([]repos.TopicWithCounts, error) {
	return nil, nil
}

type fakeUnassignedPoolRepo struct {
	members []uuid.UUID
}

func (r *fakeUnassignedPoolRepo) Add(dbc dbctx.Context, feedbackID uuid.UUID) error {
	r.members = append(r.members, feedbackID)
	return nil
}
func (r *fakeUnassignedPoolRepo) Count(dbc dbctx.Context) (int64, error) {
	return int64(len(r.members)), nil
}
func (r *fakeUnassignedPoolRepo) DrainAll(dbc dbctx.Context) ([]uuid.UUID, error) {
	out := r.members
	r.members = nil
	return out, nil
}

func newTestStagesWithCluster(t *testing.T, feedback *fakeFeedbackRepo, ann *fakeAnnotationRepo, topics *fakeTopicRepo, pool *fakeUnassignedPoolRepo, vectors *fakeVectorStore, q *fakeQueue, sm *fakeSentimentModel, threshold float64, poolThreshold int) *Stages {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return NewStages(log, feedback, ann, topics, pool, nil, nil, nil, vectors, sm, q, threshold, poolThreshold)
}

func TestAnnotate_FirstRunClassifiesAndEnqueuesCluster(t *testing.T) {
	batchID := uuid.New()
	fbID := uuid.New()
	feedback := &fakeFeedbackRepo{byBatch: map[uuid.UUID][]*domain.Feedback{
		batchID: {{ID: fbID, Body: "great job"}},
	}}
	ann := newFakeAnnotationRepo()
	q := &fakeQueue{}
	sm := &fakeSentimentModel{}
	stages := newTestStages(t, feedback, ann, q, sm)

	job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, BatchID: &batchID}
	err := stages.Annotate(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, sm.classifyCalls)
	assert.Equal(t, 1, ann.upsertCalls)
	require.Len(t, q.enqueued, 1)
	assert.Equal(t, domain.QueueCluster, q.enqueued[0].Queue)
}

func TestAnnotate_ReplayIsIdempotent(t *testing.T) {
	batchID := uuid.New()
	fbID := uuid.New()
	feedback := &fakeFeedbackRepo{byBatch: map[uuid.UUID][]*domain.Feedback{
		batchID: {{ID: fbID, Body: "great job"}},
	}}
	ann := newFakeAnnotationRepo()
	q := &fakeQueue{}
	sm := &fakeSentimentModel{}
	stages := newTestStages(t, feedback, ann, q, sm)

	job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, BatchID: &batchID}
	require.NoError(t, stages.Annotate(context.Background(), job))
	require.NoError(t, stages.Annotate(context.Background(), job))

	assert.Equal(t, 1, sm.classifyCalls, "replay must not reclassify an already-annotated row")
	assert.Equal(t, 1, ann.upsertCalls, "replay must not re-upsert an already-annotated row")
	assert.Len(t, q.enqueued, 2, "replay still re-cascades to cluster, just without redoing the work")
}

func TestAnnotate_EmptyBatchIsNoop(t *testing.T) {
	batchID := uuid.New()
	feedback := &fakeFeedbackRepo{byBatch: map[uuid.UUID][]*domain.Feedback{}}
	ann := newFakeAnnotationRepo()
	q := &fakeQueue{}
	sm := &fakeSentimentModel{}
	stages := newTestStages(t, feedback, ann, q, sm)

	job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, BatchID: &batchID}
	require.NoError(t, stages.Annotate(context.Background(), job))

	assert.Equal(t, 0, sm.classifyCalls)
	assert.Empty(t, q.enqueued)
}

func TestIngest_MissingBatchIDErrors(t *testing.T) {
	stages := newTestStages(t, &fakeFeedbackRepo{}, newFakeAnnotationRepo(), &fakeQueue{}, &fakeSentimentModel{})
	err := stages.Ingest(context.Background(), domain.Job{ID: uuid.New()})
	assert.Error(t, err)
}

func TestAnnotate_FeedbackIDsJobAnnotatesWithoutBatch(t *testing.T) {
	fbID := uuid.New()
	// single/batch-JSON ingestion never assigns a BatchID; the job instead
	// carries the feedback ids directly.
	feedback := &fakeFeedbackRepo{byID: map[uuid.UUID]*domain.Feedback{
		fbID: {ID: fbID, Body: "great job"},
	}}
	ann := newFakeAnnotationRepo()
	q := &fakeQueue{}
	sm := &fakeSentimentModel{}
	stages := newTestStages(t, feedback, ann, q, sm)

	job := domain.Job{ID: uuid.New(), Queue: domain.QueueAnnotate, FeedbackIDs: []uuid.UUID{fbID}}
	err := stages.Annotate(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, sm.classifyCalls)
	assert.Equal(t, 1, ann.upsertCalls)
	require.Len(t, q.enqueued, 1)
	assert.Equal(t, domain.QueueCluster, q.enqueued[0].Queue)
	assert.Equal(t, []uuid.UUID{fbID}, q.enqueued[0].FeedbackIDs)
}

func TestAssignTopic_AboveThresholdAssignsNearestTopic(t *testing.T) {
	candidateID := uuid.New()
	topicID := uint(7)
	ann := newFakeAnnotationRepo()
	ann.byFeedback[candidateID] = &domain.Annotation{FeedbackID: candidateID, TopicID: &topicID}
	vectors := &fakeVectorStore{matches: []vectorstore.Match{{FeedbackID: candidateID, Score: 0.95}}}
	pool := &fakeUnassignedPoolRepo{}
	stages := newTestStagesWithCluster(t, &fakeFeedbackRepo{}, ann, &fakeTopicRepo{}, pool, vectors, &fakeQueue{}, &fakeSentimentModel{}, 0.8, 5)

	got, err := stages.assignTopic(context.Background(), dbctx.New(context.Background()), uuid.New(), []float32{0.1, 0.2})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, topicID, *got)
	assert.Empty(t, pool.members)
}

func TestAssignTopic_BelowThresholdJoinsUnassignedPool(t *testing.T) {
	candidateID := uuid.New()
	topicID := uint(7)
	ann := newFakeAnnotationRepo()
	ann.byFeedback[candidateID] = &domain.Annotation{FeedbackID: candidateID, TopicID: &topicID}
	vectors := &fakeVectorStore{matches: []vectorstore.Match{{FeedbackID: candidateID, Score: 0.5}}}
	pool := &fakeUnassignedPoolRepo{}
	stages := newTestStagesWithCluster(t, &fakeFeedbackRepo{}, ann, &fakeTopicRepo{}, pool, vectors, &fakeQueue{}, &fakeSentimentModel{}, 0.8, 5)

	feedbackID := uuid.New()
	got, err := stages.assignTopic(context.Background(), dbctx.New(context.Background()), feedbackID, []float32{0.1, 0.2})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []uuid.UUID{feedbackID}, pool.members)
}

func TestHandler_LooksUpAllFourQueues(t *testing.T) {
	stages := newTestStages(t, &fakeFeedbackRepo{}, newFakeAnnotationRepo(), &fakeQueue{}, &fakeSentimentModel{})
	for _, name := range []domain.QueueName{domain.QueueIngest, domain.QueueAnnotate, domain.QueueCluster, domain.QueueReports} {
		h, ok := stages.Handler(name)
		assert.True(t, ok, "queue %s", name)
		assert.NotNil(t, h)
	}
	_, ok := stages.Handler(domain.QueueName("bogus"))
	assert.False(t, ok)
}
