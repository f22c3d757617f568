// Package analytics implements the analytics engine (C7): a read-through
// cache wrapping the read-only AnalyticsRepo facade, with per-endpoint TTLs
// matching spec §4.7 (300s default, 60s for recent/summary, 900s for
// historical daily-aggregate rollups).
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/cache"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

const (
	ttlDefault    = 300
	ttlRecent     = 60
	ttlHistorical = 900
)

type Service struct {
	log   *logger.Logger
	repo  repos.AnalyticsRepo
	cache cache.Cache
}

func NewService(log *logger.Logger, repo repos.AnalyticsRepo, c cache.Cache) *Service {
	return &Service{log: log.With("service", "AnalyticsService"), repo: repo, cache: c}
}

// withCache reads through c.cache keyed on endpoint+params: a cache hit
// unmarshals straight into out; a miss calls load, marshals its result,
// writes it back with ttlSeconds, and returns it. load's error is never
// cached.
func withCache[T any](ctx context.Context, s *Service, endpoint string, params map[string]string, ttlSeconds int, load func() (T, error)) (T, error) {
	key := cache.AnalyticsKey(endpoint, params)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		s.log.Warn("analytics cache entry failed to unmarshal; treating as miss", "key", key)
	}

	out, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if raw, err := json.Marshal(out); err == nil {
		s.cache.SetTTL(ctx, key, raw, ttlSeconds)
	}
	return out, nil
}

func rangeParams(groupBy string, r repos.DateRange) map[string]string {
	return map[string]string{
		"group_by": groupBy,
		"start":    r.Start.UTC().Format(time.RFC3339),
		"end":      r.End.UTC().Format(time.RFC3339),
	}
}

func (s *Service) SentimentTrend(ctx context.Context, groupBy string, r repos.DateRange) ([]repos.SentimentTrendPoint, error) {
	return withCache(ctx, s, "sentiment-trend", rangeParams(groupBy, r), ttlDefault, func() ([]repos.SentimentTrendPoint, error) {
		return s.repo.SentimentTrend(dbctx.New(ctx), groupBy, r)
	})
}

func (s *Service) VolumeTrend(ctx context.Context, groupBy string, r repos.DateRange) ([]repos.VolumeTrendPoint, error) {
	return withCache(ctx, s, "volume-trend", rangeParams(groupBy, r), ttlDefault, func() ([]repos.VolumeTrendPoint, error) {
		return s.repo.VolumeTrend(dbctx.New(ctx), groupBy, r)
	})
}

type dailyAggregatesResult struct {
	Rows  []repos.DailyAggregateRow `json:"rows"`
	Total int64                     `json:"total"`
}

// DailyAggregates carries the historical rollup TTL (900s): it reads a
// materialised view that refreshes only when the reports stage runs, after
// an admin mutation, or on an explicit admin refresh; each of those also
// clears the analytics cache.
func (s *Service) DailyAggregates(ctx context.Context, r repos.DateRange, page, pageSize int) ([]repos.DailyAggregateRow, int64, error) {
	params := rangeParams("day", r)
	params["page"] = fmt.Sprintf("%d", page)
	params["page_size"] = fmt.Sprintf("%d", pageSize)
	res, err := withCache(ctx, s, "daily-aggregates", params, ttlHistorical, func() (dailyAggregatesResult, error) {
		rows, total, err := s.repo.DailyAggregates(dbctx.New(ctx), r, page, pageSize)
		return dailyAggregatesResult{Rows: rows, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Rows, res.Total, nil
}

func (s *Service) CustomerStats(ctx context.Context, minFeedbackCount int, r repos.DateRange) ([]repos.CustomerStatsRow, error) {
	params := rangeParams("day", r)
	params["min_feedback_count"] = fmt.Sprintf("%d", minFeedbackCount)
	return withCache(ctx, s, "customer-stats", params, ttlDefault, func() ([]repos.CustomerStatsRow, error) {
		return s.repo.CustomerStats(dbctx.New(ctx), minFeedbackCount, r)
	})
}

func (s *Service) SourceStats(ctx context.Context, r repos.DateRange) ([]repos.SourceStatsRow, error) {
	return withCache(ctx, s, "source-stats", rangeParams("day", r), ttlDefault, func() ([]repos.SourceStatsRow, error) {
		return s.repo.SourceStats(dbctx.New(ctx), r)
	})
}

func (s *Service) ToxicityStats(ctx context.Context, threshold float64, r repos.DateRange) (repos.ToxicityStatsRow, error) {
	params := rangeParams("day", r)
	params["threshold"] = fmt.Sprintf("%.3f", threshold)
	return withCache(ctx, s, "toxicity-stats", params, ttlDefault, func() (repos.ToxicityStatsRow, error) {
		return s.repo.ToxicityStats(dbctx.New(ctx), threshold, r)
	})
}

type summaryResult struct {
	Total       int64                     `json:"total"`
	NegativePct float64                   `json:"negative_pct"`
	Series      []repos.VolumeTrendPoint `json:"series"`
}

// Summary uses the 60-second "recent" TTL: it's the headline dashboard
// number and spec §4.7 treats it as the one endpoint worth refreshing
// faster than the default.
func (s *Service) Summary(ctx context.Context, r repos.DateRange) (int64, float64, []repos.VolumeTrendPoint, error) {
	res, err := withCache(ctx, s, "summary", rangeParams("day", r), ttlRecent, func() (summaryResult, error) {
		total, negativePct, series, err := s.repo.Summary(dbctx.New(ctx), r)
		return summaryResult{Total: total, NegativePct: negativePct, Series: series}, err
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return res.Total, res.NegativePct, res.Series, nil
}

func (s *Service) TopicBreakdown(ctx context.Context, r repos.DateRange) ([]repos.TopicStatsRow, error) {
	return withCache(ctx, s, "topic-breakdown", rangeParams("day", r), ttlDefault, func() ([]repos.TopicStatsRow, error) {
		return s.repo.TopicBreakdown(dbctx.New(ctx), r)
	})
}

// Examples uses the same read-through/write-through cache every other
// rollup does (spec §4.7: "for every endpoint"), keyed on its filter/limit
// combination with the default TTL.
func (s *Service) Examples(ctx context.Context, topicFilter *uint, sentimentFilter *int, limit int) ([]repos.ExampleRow, error) {
	params := map[string]string{"limit": fmt.Sprintf("%d", limit)}
	if topicFilter != nil {
		params["topic_id"] = fmt.Sprintf("%d", *topicFilter)
	}
	if sentimentFilter != nil {
		params["sentiment"] = fmt.Sprintf("%d", *sentimentFilter)
	}
	rows, err := withCache(ctx, s, "examples", params, ttlDefault, func() ([]repos.ExampleRow, error) {
		return s.repo.Examples(dbctx.New(ctx), topicFilter, sentimentFilter, limit)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load examples", err)
	}
	return rows, nil
}

// InvalidateAll clears every cached analytics entry, called by the reports
// stage (C6) and admin mutation engine (C9) after a write that could
// change any rollup's answer.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.cache.DeleteByPrefix(ctx, cache.AnalyticsPrefix(""))
}
