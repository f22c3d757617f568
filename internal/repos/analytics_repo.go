// AnalyticsRepo is the read-only facade of spec §4.1's "read-only flag
// narrows the analytics engine's surface": a closed, named set of
// parameterised projection/aggregation queries. It never accepts a
// caller-built query fragment.
package repos

import (
	"time"

	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type SentimentTrendPoint struct {
	Period   string `json:"period"`
	Positive int64  `json:"positive_count"`
	Negative int64  `json:"negative_count"`
	Neutral  int64  `json:"neutral_count"`
}

type VolumeTrendPoint struct {
	Period string `json:"period"`
	Total  int64  `json:"total"`
}

type DailyAggregateRow struct {
	Day              time.Time          `json:"day"`
	TotalFeedback    int64              `json:"total_feedback"`
	PositiveFeedback int64              `json:"positive_feedback"`
	NegativeFeedback int64              `json:"negative_feedback"`
	NeutralFeedback  int64              `json:"neutral_feedback"`
	AvgSentiment     *float64           `json:"avg_sentiment"`
	UniqueCustomers  int64              `json:"unique_customers"`
	TopSources       domain.StringSlice `json:"top_sources"`
}

type CustomerStatsRow struct {
	CustomerID   string   `json:"customer_id"`
	Count        int64    `json:"count"`
	AvgSentiment *float64 `json:"avg_sentiment"`
}

type SourceStatsRow struct {
	Source   string `json:"source"`
	Count    int64  `json:"count"`
	Positive int64  `json:"positive_count"`
	Negative int64  `json:"negative_count"`
	Neutral  int64  `json:"neutral_count"`
}

type ToxicityStatsRow struct {
	AboveThreshold int64   `json:"above_threshold_count"`
	Mean           float64 `json:"mean"`
}

type TopicStatsRow struct {
	TopicID      uint     `json:"topic_id"`
	Label        string   `json:"label"`
	Count        int64    `json:"count"`
	AvgSentiment *float64 `json:"avg_sentiment"`
	PriorCount   int64    `json:"prior_count"`
}

type ExampleRow struct {
	FeedbackID string  `json:"feedback_id"`
	Text       string  `json:"text"`
	TopicID    *uint   `json:"topic_id,omitempty"`
	Sentiment  *int    `json:"sentiment,omitempty"`
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

type AnalyticsRepo interface {
	SentimentTrend(dbc dbctx.Context, groupBy string, r DateRange) ([]SentimentTrendPoint, error)
	VolumeTrend(dbc dbctx.Context, groupBy string, r DateRange) ([]VolumeTrendPoint, error)
	DailyAggregates(dbc dbctx.Context, r DateRange, page, pageSize int) ([]DailyAggregateRow, int64, error)
	CustomerStats(dbc dbctx.Context, minFeedbackCount int, r DateRange) ([]CustomerStatsRow, error)
	SourceStats(dbc dbctx.Context, r DateRange) ([]SourceStatsRow, error)
	ToxicityStats(dbc dbctx.Context, threshold float64, r DateRange) (ToxicityStatsRow, error)
	Summary(dbc dbctx.Context, r DateRange) (total int64, negativePct float64, series []VolumeTrendPoint, err error)
	TopicBreakdown(dbc dbctx.Context, r DateRange) ([]TopicStatsRow, error)
	Examples(dbc dbctx.Context, topicFilter *uint, sentimentFilter *int, limit int) ([]ExampleRow, error)
}

type analyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) AnalyticsRepo {
	return &analyticsRepo{db: db, log: baseLog.With("repo", "AnalyticsRepo")}
}

func truncUnit(groupBy string) string {
	switch groupBy {
	case "week":
		return "week"
	case "month":
		return "month"
	default:
		return "day"
	}
}

func (r *analyticsRepo) SentimentTrend(dbc dbctx.Context, groupBy string, dr DateRange) ([]SentimentTrendPoint, error) {
	var rows []SentimentTrendPoint
	err := dbc.Resolve(r.db).Table("feedback f").
		Joins("LEFT JOIN annotation a ON a.feedback_id = f.id").
		Select(`to_char(date_trunc(?, f.created_at), 'YYYY-MM-DD') AS period,
			count(*) FILTER (WHERE a.sentiment_class = 1) AS positive,
			count(*) FILTER (WHERE a.sentiment_class = -1) AS negative,
			count(*) FILTER (WHERE a.sentiment_class = 0) AS neutral`, truncUnit(groupBy)).
		Where("f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Group("period").
		Order("period ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepo) VolumeTrend(dbc dbctx.Context, groupBy string, dr DateRange) ([]VolumeTrendPoint, error) {
	var rows []VolumeTrendPoint
	err := dbc.Resolve(r.db).Table("feedback f").
		Select(`to_char(date_trunc(?, f.created_at), 'YYYY-MM-DD') AS period, count(*) AS total`, truncUnit(groupBy)).
		Where("f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Group("period").
		Order("period ASC").
		Scan(&rows).Error
	return rows, err
}

// DailyAggregates reads from the materialised view, tolerating staleness
// up to one refresh period (spec §4.7).
func (r *analyticsRepo) DailyAggregates(dbc dbctx.Context, dr DateRange, page, pageSize int) ([]DailyAggregateRow, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 365 {
		pageSize = 30
	}
	base := dbc.Resolve(r.db).Table("daily_feedback_aggregates").
		Where("day BETWEEN ? AND ?", dr.Start, dr.End)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []DailyAggregateRow
	err := base.Order("day DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	return rows, total, err
}

func (r *analyticsRepo) CustomerStats(dbc dbctx.Context, minFeedbackCount int, dr DateRange) ([]CustomerStatsRow, error) {
	var rows []CustomerStatsRow
	err := dbc.Resolve(r.db).Table("feedback f").
		Joins("LEFT JOIN annotation a ON a.feedback_id = f.id").
		Select(`f.customer_id AS customer_id, count(*) AS count, avg(a.sentiment_class) AS avg_sentiment`).
		Where("f.deleted_at IS NULL AND f.customer_id <> '' AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Group("f.customer_id").
		Having("count(*) >= ?", minFeedbackCount).
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepo) SourceStats(dbc dbctx.Context, dr DateRange) ([]SourceStatsRow, error) {
	var rows []SourceStatsRow
	err := dbc.Resolve(r.db).Table("feedback f").
		Joins("LEFT JOIN annotation a ON a.feedback_id = f.id").
		Select(`f.source AS source, count(*) AS count,
			count(*) FILTER (WHERE a.sentiment_class = 1) AS positive,
			count(*) FILTER (WHERE a.sentiment_class = -1) AS negative,
			count(*) FILTER (WHERE a.sentiment_class = 0) AS neutral`).
		Where("f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Group("f.source").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepo) ToxicityStats(dbc dbctx.Context, threshold float64, dr DateRange) (ToxicityStatsRow, error) {
	var row ToxicityStatsRow
	err := dbc.Resolve(r.db).Table("feedback f").
		Joins("JOIN annotation a ON a.feedback_id = f.id").
		Select(`count(*) FILTER (WHERE a.toxicity_score >= ?) AS above_threshold, coalesce(avg(a.toxicity_score), 0) AS mean`, threshold).
		Where("f.deleted_at IS NULL AND a.toxicity_score IS NOT NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Scan(&row).Error
	return row, err
}

func (r *analyticsRepo) Summary(dbc dbctx.Context, dr DateRange) (int64, float64, []VolumeTrendPoint, error) {
	var total, negative int64
	err := dbc.Resolve(r.db).Table("feedback f").
		Joins("LEFT JOIN annotation a ON a.feedback_id = f.id").
		Select("count(*) AS total, count(*) FILTER (WHERE a.sentiment_class = -1) AS negative").
		Where("f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Row().Scan(&total, &negative)
	if err != nil {
		return 0, 0, nil, err
	}
	var negativePct float64
	if total > 0 {
		negativePct = float64(negative) / float64(total) * 100
	}
	series, err := r.VolumeTrend(dbc, "day", DateRange{Start: dr.End.AddDate(0, 0, -14), End: dr.End})
	if err != nil {
		return 0, 0, nil, err
	}
	return total, negativePct, series, nil
}

func (r *analyticsRepo) TopicBreakdown(dbc dbctx.Context, dr DateRange) ([]TopicStatsRow, error) {
	var rows []TopicStatsRow
	err := dbc.Resolve(r.db).Table("topic t").
		Joins("LEFT JOIN annotation a ON a.topic_id = t.id").
		Joins("LEFT JOIN feedback f ON f.id = a.feedback_id AND f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Select(`t.id AS topic_id, t.label AS label, count(f.id) AS count, avg(a.sentiment_class) AS avg_sentiment`).
		Group("t.id, t.label").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	windowLen := dr.End.Sub(dr.Start)
	priorStart := dr.Start.Add(-windowLen)
	priorEnd := dr.Start
	var priorRows []TopicStatsRow
	err = dbc.Resolve(r.db).Table("topic t").
		Joins("LEFT JOIN annotation a ON a.topic_id = t.id").
		Joins("LEFT JOIN feedback f ON f.id = a.feedback_id AND f.deleted_at IS NULL AND f.created_at BETWEEN ? AND ?", priorStart, priorEnd).
		Select(`t.id AS topic_id, count(f.id) AS count`).
		Group("t.id").
		Scan(&priorRows).Error
	if err != nil {
		return nil, err
	}
	priorByTopic := make(map[uint]int64, len(priorRows))
	for _, pr := range priorRows {
		priorByTopic[pr.TopicID] = pr.Count
	}
	for i := range rows {
		rows[i].PriorCount = priorByTopic[rows[i].TopicID]
	}
	return rows, nil
}

func (r *analyticsRepo) Examples(dbc dbctx.Context, topicFilter *uint, sentimentFilter *int, limit int) ([]ExampleRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	tx := dbc.Resolve(r.db).Table("feedback f").
		Joins("JOIN annotation a ON a.feedback_id = f.id").
		Select("f.id AS feedback_id, f.body AS text, a.topic_id AS topic_id, a.sentiment_class AS sentiment").
		Where("f.deleted_at IS NULL")
	if topicFilter != nil {
		tx = tx.Where("a.topic_id = ?", *topicFilter)
	}
	if sentimentFilter != nil {
		tx = tx.Where("a.sentiment_class = ?", *sentimentFilter)
	}
	var rows []ExampleRow
	err := tx.Order("f.created_at DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}
