// Package export implements the three CSV export streams of spec §4.8
// (C8): feedback, topics, and daily-aggregate rollups. Each writes
// straight to an io.Writer: feedback through a server-side cursor, daily
// aggregates page by page, and topics from one in-memory list. Newly
// authored in the teacher's
// "adapter wraps low-level client, service wraps adapter" layering since
// the teacher has no existing streaming-export code of its own.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

const flushEvery = 500

type Service struct {
	log          *logger.Logger
	feedbackRepo repos.FeedbackRepo
	topicRepo    repos.TopicRepo
	analytics    repos.AnalyticsRepo
}

func NewService(log *logger.Logger, feedbackRepo repos.FeedbackRepo, topicRepo repos.TopicRepo, analytics repos.AnalyticsRepo) *Service {
	return &Service{log: log.With("service", "ExportService"), feedbackRepo: feedbackRepo, topicRepo: topicRepo, analytics: analytics}
}

// Feedback streams every row matching f as CSV, one flush every 500 rows
// so a client reading the response body sees steady progress instead of
// one giant buffered write. ctx cancellation (client disconnect) aborts
// the underlying cursor via StreamFilter's row-callback error return.
func (s *Service) Feedback(ctx context.Context, w io.Writer, f repos.ExportFilter) error {
	topics, err := s.topicRepo.List(dbctx.New(ctx))
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load topics for feedback export", err)
	}
	byID := make(map[uint]*domain.Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "text", "source", "customer_id", "sentiment_score", "created_at", "updated_at", "primary_topic", "topic_keywords"}
	if err := cw.Write(header); err != nil {
		return err
	}

	rowCount := 0
	err = s.feedbackRepo.StreamFilter(dbctx.New(ctx), f, func(fb *domain.Feedback, ann *domain.Annotation) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		updatedAt := fb.CreatedAt
		if !ann.UpdatedAt.IsZero() {
			updatedAt = ann.UpdatedAt
		}
		var primaryTopic, topicKeywords string
		if ann.TopicID != nil {
			if t, ok := byID[*ann.TopicID]; ok {
				primaryTopic = t.Label
				topicKeywords = strings.Join(t.Keywords, "; ")
			}
		}
		record := []string{
			fb.ID.String(),
			fb.Body,
			fb.Source,
			fb.CustomerID,
			intPtrOrEmpty(ann.SentimentClass),
			fb.CreatedAt.UTC().Format(time.RFC3339),
			updatedAt.UTC().Format(time.RFC3339),
			primaryTopic,
			topicKeywords,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		rowCount++
		if rowCount%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if f, ok := w.(interface{ Flush() }); ok {
				f.Flush()
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "stream feedback export", err)
	}
	cw.Flush()
	return cw.Error()
}

// Topics streams every topic with its feedback count and mean sentiment.
// Topic counts are small enough (bounded by the number of clusters, not
// feedback volume) that no chunked flush is needed beyond csv.Writer's own
// buffering.
func (s *Service) Topics(ctx context.Context, w io.Writer, minFeedbackCount int) error {
	rows, err := s.topicRepo.ListWithCounts(dbctx.New(ctx), minFeedbackCount)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load topics for export", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "label", "keywords", "created_at", "updated_at", "feedback_count", "avg_sentiment"}); err != nil {
		return err
	}
	for _, t := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Label,
			strings.Join(t.Keywords, "; "),
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.UpdatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(t.FeedbackCount, 10),
			floatPtrOrEmpty(t.AvgSentiment),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DailyAggregates streams the materialised-view rows for r page by page,
// flushing after every page, since the view itself is already a bounded
// daily rollup rather than a raw per-feedback scan.
func (s *Service) DailyAggregates(ctx context.Context, w io.Writer, r repos.DateRange) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "total_feedback", "positive_feedback", "negative_feedback", "neutral_feedback", "avg_sentiment", "unique_customers", "top_sources"}); err != nil {
		return err
	}

	const pageSize = 200
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, total, err := s.analytics.DailyAggregates(dbctx.New(ctx), r, page, pageSize)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "load daily aggregates for export", err)
		}
		for _, row := range rows {
			if err := cw.Write([]string{
				row.Day.UTC().Format("2006-01-02"),
				strconv.FormatInt(row.TotalFeedback, 10),
				strconv.FormatInt(row.PositiveFeedback, 10),
				strconv.FormatInt(row.NegativeFeedback, 10),
				strconv.FormatInt(row.NeutralFeedback, 10),
				floatPtrOrEmpty(row.AvgSentiment),
				strconv.FormatInt(row.UniqueCustomers, 10),
				strings.Join(row.TopSources, "; "),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if int64(page*pageSize) >= total || len(rows) == 0 {
			break
		}
	}
	return nil
}

func intPtrOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func uintPtrOrEmpty(p *uint) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*p), 10)
}

func floatPtrOrEmpty(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *p)
}
