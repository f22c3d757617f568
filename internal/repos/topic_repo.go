package repos

import (
	"time"

	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type TopicRepo interface {
	Create(dbc dbctx.Context, t *domain.Topic) error
	GetByID(dbc dbctx.Context, id uint) (*domain.Topic, error)
	Exists(dbc dbctx.Context, id uint) (bool, error)
	List(dbc dbctx.Context) ([]*domain.Topic, error)
	Relabel(dbc dbctx.Context, id uint, label string, keywords domain.StringSlice) (before *domain.Topic, err error)
	Delete(dbc dbctx.Context, id uint) error
	ListWithCounts(dbc dbctx.Context, minFeedbackCount int) ([]TopicWithCounts, error)
}

// TopicWithCounts is the projection behind the topics CSV export and the
// admin topics listing — each a topic row plus its feedback count and
// mean sentiment.
type TopicWithCounts struct {
	domain.Topic
	FeedbackCount int64    `json:"feedback_count"`
	AvgSentiment  *float64 `json:"avg_sentiment"`
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) Create(dbc dbctx.Context, t *domain.Topic) error {
	return dbc.Resolve(r.db).Create(t).Error
}

func (r *topicRepo) GetByID(dbc dbctx.Context, id uint) (*domain.Topic, error) {
	var t domain.Topic
	if err := dbc.Resolve(r.db).Where("id = ?", id).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *topicRepo) Exists(dbc dbctx.Context, id uint) (bool, error) {
	var count int64
	err := dbc.Resolve(r.db).Model(&domain.Topic{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *topicRepo) List(dbc dbctx.Context) ([]*domain.Topic, error) {
	var out []*domain.Topic
	err := dbc.Resolve(r.db).Order("id ASC").Find(&out).Error
	return out, err
}

// Relabel writes the new label/keywords and advances updated_at strictly
// (spec §3: "last-update advances strictly monotonically on each
// mutation"), returning the pre-mutation row for the caller's audit delta.
func (r *topicRepo) Relabel(dbc dbctx.Context, id uint, label string, keywords domain.StringSlice) (*domain.Topic, error) {
	tx := dbc.Resolve(r.db)
	var before domain.Topic
	if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	now := time.Now().UTC()
	if !now.After(before.UpdatedAt) {
		now = before.UpdatedAt.Add(time.Microsecond)
	}
	if err := tx.Model(&domain.Topic{}).Where("id = ?", id).Updates(map[string]interface{}{
		"label":      label,
		"keywords":   keywords,
		"updated_at": now,
	}).Error; err != nil {
		return nil, err
	}
	return &before, nil
}

func (r *topicRepo) Delete(dbc dbctx.Context, id uint) error {
	return dbc.Resolve(r.db).Where("id = ?", id).Delete(&domain.Topic{}).Error
}

func (r *topicRepo) ListWithCounts(dbc dbctx.Context, minFeedbackCount int) ([]TopicWithCounts, error) {
	var rows []TopicWithCounts
	err := dbc.Resolve(r.db).Table("topic t").
		Joins("LEFT JOIN annotation a ON a.topic_id = t.id").
		Select(`t.id, t.label, t.keywords, t.created_at, t.updated_at,
			count(a.feedback_id) AS feedback_count, avg(a.sentiment_class) AS avg_sentiment`).
		Group("t.id, t.label, t.keywords, t.created_at, t.updated_at").
		Having("count(a.feedback_id) >= ?", minFeedbackCount).
		Order("t.id ASC").
		Scan(&rows).Error
	return rows, err
}
