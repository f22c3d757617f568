package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type UnassignedPoolRepo interface {
	Add(dbc dbctx.Context, feedbackID uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
	DrainAll(dbc dbctx.Context) ([]uuid.UUID, error)
}

type unassignedPoolRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnassignedPoolRepo(db *gorm.DB, baseLog *logger.Logger) UnassignedPoolRepo {
	return &unassignedPoolRepo{db: db, log: baseLog.With("repo", "UnassignedPoolRepo")}
}

func (r *unassignedPoolRepo) Add(dbc dbctx.Context, feedbackID uuid.UUID) error {
	return dbc.Resolve(r.db).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.UnassignedPoolMember{FeedbackID: feedbackID}).Error
}

func (r *unassignedPoolRepo) Count(dbc dbctx.Context) (int64, error) {
	var count int64
	err := dbc.Resolve(r.db).Model(&domain.UnassignedPoolMember{}).Count(&count).Error
	return count, err
}

// DrainAll returns every pooled feedback id and empties the pool. Called
// once a new topic has been synthesised from the pool's contents, so
// those rows don't get matched into it a second time.
func (r *unassignedPoolRepo) DrainAll(dbc dbctx.Context) ([]uuid.UUID, error) {
	var members []domain.UnassignedPoolMember
	tx := dbc.Resolve(r.db)
	if err := tx.Find(&members).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.FeedbackID)
	}
	if err := tx.Where("1 = 1").Delete(&domain.UnassignedPoolMember{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
