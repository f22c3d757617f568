package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

// fakeCache is an in-memory cache.Cache, enough to exercise the
// read-through behaviour without a real Redis backend.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}

func (c *fakeCache) SetTTL(ctx context.Context, key string, value []byte, ttlSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

func (c *fakeCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

func (c *fakeCache) DeleteByPrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.store {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.store, k)
		}
	}
}

// fakeAnalyticsRepo counts calls so tests can assert a cache hit never
// reaches the repo.
type fakeAnalyticsRepo struct {
	mu              sync.Mutex
	volumeCalls     int
	volumeResponse  []repos.VolumeTrendPoint
	examplesCalls   int
	examplesResponse []repos.ExampleRow
}

func (f *fakeAnalyticsRepo) SentimentTrend(dbc dbctx.Context, groupBy string, r repos.DateRange) ([]repos.SentimentTrendPoint, error) {
	return nil, nil
}
func (f *fakeAnalyticsRepo) VolumeTrend(dbc dbctx.Context, groupBy string, r repos.DateRange) ([]repos.VolumeTrendPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumeCalls++
	return f.volumeResponse, nil
}
func (f *fakeAnalyticsRepo) DailyAggregates(dbc dbctx.Context, r repos.DateRange, page, pageSize int) ([]repos.DailyAggregateRow, int64, error) {
	return nil, 0, nil
}
func (f *fakeAnalyticsRepo) CustomerStats(dbc dbctx.Context, minFeedbackCount int, r repos.DateRange) ([]repos.CustomerStatsRow, error) {
	return nil, nil
}
func (f *fakeAnalyticsRepo) SourceStats(dbc dbctx.Context, r repos.DateRange) ([]repos.SourceStatsRow, error) {
	return nil, nil
}
func (f *fakeAnalyticsRepo) ToxicityStats(dbc dbctx.Context, threshold float64, r repos.DateRange) (repos.ToxicityStatsRow, error) {
	return repos.ToxicityStatsRow{}, nil
}
func (f *fakeAnalyticsRepo) Summary(dbc dbctx.Context, r repos.DateRange) (int64, float64, []repos.VolumeTrendPoint, error) {
	return 0, 0, nil, nil
}
func (f *fakeAnalyticsRepo) TopicBreakdown(dbc dbctx.Context, r repos.DateRange) ([]repos.TopicStatsRow, error) {
	return nil, nil
}
func (f *fakeAnalyticsRepo) Examples(dbc dbctx.Context, topicFilter *uint, sentimentFilter *int, limit int) ([]repos.ExampleRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.examplesCalls++
	return f.examplesResponse, nil
}

func testRange() repos.DateRange {
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	return repos.DateRange{Start: end.AddDate(0, 0, -30), End: end}
}

func TestVolumeTrend_CacheHitSkipsRepoAndIsByteIdentical(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)

	repo := &fakeAnalyticsRepo{volumeResponse: []repos.VolumeTrendPoint{{Period: "2026-01-01", Total: 42}}}
	c := newFakeCache()
	svc := NewService(log, repo, c)

	ctx := context.Background()
	r := testRange()

	first, err := svc.VolumeTrend(ctx, "day", r)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.volumeCalls)

	second, err := svc.VolumeTrend(ctx, "day", r)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.volumeCalls, "second call must be served from cache")
	assert.Equal(t, first, second)
}

func TestExamples_CacheHitSkipsRepo(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)

	repo := &fakeAnalyticsRepo{examplesResponse: []repos.ExampleRow{{FeedbackID: "abc", Text: "great job"}}}
	c := newFakeCache()
	svc := NewService(log, repo, c)
	ctx := context.Background()

	first, err := svc.Examples(ctx, nil, nil, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.examplesCalls)

	second, err := svc.Examples(ctx, nil, nil, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.examplesCalls, "second call must be served from cache")
	assert.Equal(t, first, second)
}

func TestInvalidateAll_ForcesRepoReload(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)

	repo := &fakeAnalyticsRepo{volumeResponse: []repos.VolumeTrendPoint{{Period: "2026-01-01", Total: 1}}}
	c := newFakeCache()
	svc := NewService(log, repo, c)
	ctx := context.Background()
	r := testRange()

	_, err = svc.VolumeTrend(ctx, "day", r)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.volumeCalls)

	svc.InvalidateAll(ctx)

	_, err = svc.VolumeTrend(ctx, "day", r)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.volumeCalls, "invalidated cache must reload from repo")
}
