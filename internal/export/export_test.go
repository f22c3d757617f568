package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

type fakeFeedbackRepo struct {
	rows []*domain.Feedback
	anns map[uuid.UUID]*domain.Annotation
}

func (f *fakeFeedbackRepo) Create(dbc dbctx.Context, fb *domain.Feedback) error { return nil }
func (f *fakeFeedbackRepo) CreateMany(dbc dbctx.Context, items []*domain.Feedback) error {
	return nil
}
func (f *fakeFeedbackRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Feedback, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Feedback, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) ExistingDedupKeysForBatch(dbc dbctx.Context, batchID uuid.UUID) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*domain.Feedback, error) {
	return nil, nil
}
func (f *fakeFeedbackRepo) CountSince(dbc dbctx.Context, since time.Time) (int64, error) {
	return 0, nil
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
func (f *fakeFeedbackRepo) StreamFilter(dbc dbctx.Context, filter repos.ExportFilter, fn func(*domain.Feedback, *domain.Annotation) error) error {
	for _, row := range f.rows {
		ann := f.anns[row.ID]
		if ann == nil {
			ann = &domain.Annotation{}
		}
		if err := fn(row, ann); err != nil {
			return err
		}
	}
	return nil
}

type fakeTopicRepo struct {
	rows   []repos.TopicWithCounts
	topics []*domain.Topic
}

func (f *fakeTopicRepo) Create(dbc dbctx.Context, t *domain.Topic) error { return nil }
func (f *fakeTopicRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Topic, error) {
	return nil, nil
}
func (f *fakeTopicRepo) Exists(dbc dbctx.Context, id uint) (bool, error) { return false, nil }
func (f *fakeTopicRepo) List(dbc dbctx.Context) ([]*domain.Topic, error) { return f.topics, nil }
func (f *fakeTopicRepo) Relabel(dbc dbctx.Context, id uint, label string, keywords domain.StringSlice) (*domain.Topic, error) {
	return nil, nil
}
func (f *fakeTopicRepo) Delete(dbc dbctx.Context, id uint) error { return nil }
func (f *fakeTopicRepo) ListWithCounts(dbc dbctx.Context, minFeedbackCount int) ([]repos.TopicWithCounts, error) {
	return f.rows, nil
}

func testService(t *testing.T, feedbackRows []*domain.Feedback, anns map[uuid.UUID]*domain.Annotation, topics []repos.TopicWithCounts) *Service {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return NewService(log, &fakeFeedbackRepo{rows: feedbackRows, anns: anns}, &fakeTopicRepo{rows: topics}, nil)
}

func TestFeedback_StreamsHeaderAndRows(t *testing.T) {
	id := uuid.New()
	sentiment := 1
	topicID := uint(3)
	fb := []*domain.Feedback{{ID: id, Source: "zendesk", CustomerID: "acme", Body: "great support", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}}
	anns := map[uuid.UUID]*domain.Annotation{id: {SentimentClass: &sentiment, TopicID: &topicID}}
	log, err := logger.New("development")
	require.NoError(t, err)
	svc := NewService(log, &fakeFeedbackRepo{rows: fb, anns: anns}, &fakeTopicRepo{topics: []*domain.Topic{
		{ID: topicID, Label: "praise", Keywords: domain.StringSlice{"great", "support"}},
	}}, nil)

	var buf bytes.Buffer
	err = svc.Feedback(context.Background(), &buf, repos.ExportFilter{})
	require.NoError(t, err)

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "text", "source", "customer_id", "sentiment_score", "created_at", "updated_at", "primary_topic", "topic_keywords"}, records[0])
	assert.Equal(t, id.String(), records[1][0])
	assert.Equal(t, "great support", records[1][1])
	assert.Equal(t, "zendesk", records[1][2])
	assert.Equal(t, "1", records[1][4])
	assert.Equal(t, "praise", records[1][7])
	assert.Equal(t, "great; support", records[1][8])
}

func TestFeedback_EmptyResultStillWritesHeader(t *testing.T) {
	svc := testService(t, nil, nil, nil)
	var buf bytes.Buffer
	err := svc.Feedback(context.Background(), &buf, repos.ExportFilter{})
	require.NoError(t, err)

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestFeedback_AbortsOnCancelledContext(t *testing.T) {
	id := uuid.New()
	fb := []*domain.Feedback{{ID: id}, {ID: uuid.New()}}
	svc := testService(t, fb, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := svc.Feedback(ctx, &buf, repos.ExportFilter{})
	assert.Error(t, err)
}

func TestTopics_StreamsHeaderAndRows(t *testing.T) {
	avg := 0.42
	rows := []repos.TopicWithCounts{
		{Topic: domain.Topic{ID: 1, Label: "refunds", Keywords: domain.StringSlice{"refund", "money"}}, FeedbackCount: 5, AvgSentiment: &avg},
	}
	svc := testService(t, nil, nil, rows)

	var buf bytes.Buffer
	err := svc.Topics(context.Background(), &buf, 0)
	require.NoError(t, err)

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "label", "keywords", "created_at", "updated_at", "feedback_count", "avg_sentiment"}, records[0])
	assert.Equal(t, "refunds", records[1][1])
	assert.Equal(t, "refund; money", records[1][2])
	assert.Equal(t, "5", records[1][5])
}
