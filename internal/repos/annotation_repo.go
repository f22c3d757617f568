package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type AnnotationRepo interface {
	// Upsert writes or updates the single live annotation for a feedback
	// id, satisfying the "at most one live annotation" invariant (spec §3)
	// via an ON CONFLICT(feedback_id) DO UPDATE.
	Upsert(dbc dbctx.Context, a *domain.Annotation) error
	GetByFeedbackID(dbc dbctx.Context, feedbackID uuid.UUID) (*domain.Annotation, error)
	GetByFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID) (map[uuid.UUID]*domain.Annotation, error)
	SetTopic(dbc dbctx.Context, feedbackID uuid.UUID, topicID *uint) error
	SetTopicForFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID, topicID uint) (int64, error)
	ReassignTopic(dbc dbctx.Context, fromTopicID, toTopicID uint) (int64, error)
	CountByTopic(dbc dbctx.Context, topicID uint) (int64, error)
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: baseLog.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) Upsert(dbc dbctx.Context, a *domain.Annotation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return dbc.Resolve(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "feedback_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sentiment_class", "sentiment_confidence", "topic_id",
			"toxicity_score", "embedding", "model_version", "updated_at",
		}),
	}).Create(a).Error
}

func (r *annotationRepo) GetByFeedbackID(dbc dbctx.Context, feedbackID uuid.UUID) (*domain.Annotation, error) {
	var a domain.Annotation
	if err := dbc.Resolve(r.db).Where("feedback_id = ?", feedbackID).First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *annotationRepo) GetByFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID) (map[uuid.UUID]*domain.Annotation, error) {
	out := map[uuid.UUID]*domain.Annotation{}
	if len(feedbackIDs) == 0 {
		return out, nil
	}
	var rows []*domain.Annotation
	if err := dbc.Resolve(r.db).Where("feedback_id IN ?", feedbackIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.FeedbackID] = a
	}
	return out, nil
}

func (r *annotationRepo) SetTopic(dbc dbctx.Context, feedbackID uuid.UUID, topicID *uint) error {
	return dbc.Resolve(r.db).Model(&domain.Annotation{}).
		Where("feedback_id = ?", feedbackID).
		Updates(map[string]interface{}{"topic_id": topicID}).Error
}

// SetTopicForFeedbackIDs is the batch primitive behind reassign-feedback
// (spec §4.9): a single UPDATE touching every affected annotation.
func (r *annotationRepo) SetTopicForFeedbackIDs(dbc dbctx.Context, feedbackIDs []uuid.UUID, topicID uint) (int64, error) {
	if len(feedbackIDs) == 0 {
		return 0, nil
	}
	res := dbc.Resolve(r.db).Model(&domain.Annotation{}).
		Where("feedback_id IN ?", feedbackIDs).
		Update("topic_id", topicID)
	return res.RowsAffected, res.Error
}

// ReassignTopic moves every annotation pointing at fromTopicID onto
// toTopicID, used when a topic is deleted (spec §3: "reassigns dependent
// annotations to a sentinel unassigned topic").
func (r *annotationRepo) ReassignTopic(dbc dbctx.Context, fromTopicID, toTopicID uint) (int64, error) {
	res := dbc.Resolve(r.db).Model(&domain.Annotation{}).
		Where("topic_id = ?", fromTopicID).
		Update("topic_id", toTopicID)
	return res.RowsAffected, res.Error
}

func (r *annotationRepo) CountByTopic(dbc dbctx.Context, topicID uint) (int64, error) {
	var count int64
	err := dbc.Resolve(r.db).Model(&domain.Annotation{}).Where("topic_id = ?", topicID).Count(&count).Error
	return count, err
}
