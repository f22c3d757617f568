package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(dbc dbctx.Context, f *domain.Feedback) error
	CreateMany(dbc dbctx.Context, items []*domain.Feedback) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Feedback, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Feedback, error)
	ExistingDedupKeysForBatch(dbc dbctx.Context, batchID uuid.UUID) (map[string]bool, error)
	ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*domain.Feedback, error)
	CountSince(dbc dbctx.Context, since time.Time) (int64, error)

	// StreamFilter iterates matching rows with a server-side cursor, calling
	// fn per row; fn's error aborts the scan and is returned to the caller.
	StreamFilter(dbc dbctx.Context, f ExportFilter, fn func(*domain.Feedback, *domain.Annotation) error) error

	// ListByTopic paginates the live feedback rows currently annotated with
	// topicID, newest first, backing the admin per-topic feedback browser.
	ListByTopic(dbc dbctx.Context, topicID uint, page, pageSize int) ([]*domain.Feedback, int64, error)

	// CountOlderThan counts live (non-deleted) rows created before cutoff,
	// used by the admin cleanup dry-run to report what a real run would
	// affect without mutating anything.
	CountOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
	// SoftDeleteOlderThan marks live rows created before cutoff as deleted
	// (sets Feedback.DeletedAt) and returns the number of rows affected.
	SoftDeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

// ExportFilter mirrors the filter set accepted by the feedback CSV export
// and by the analytics "examples" endpoint.
type ExportFilter struct {
	Source         *string
	CustomerID     *string
	StartDate      *time.Time
	EndDate        *time.Time
	SentimentMin   *int
	SentimentMax   *int
	TopicID        *uint
	Sentiment      *int
	Limit          int
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, f *domain.Feedback) error {
	return dbc.Resolve(r.db).Create(f).Error
}

func (r *feedbackRepo) CreateMany(dbc dbctx.Context, items []*domain.Feedback) error {
	if len(items) == 0 {
		return nil
	}
	return dbc.Resolve(r.db).CreateInBatches(items, 500).Error
}

func (r *feedbackRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Feedback, error) {
	var f domain.Feedback
	if err := dbc.Resolve(r.db).Where("id = ?", id).First(&f).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *feedbackRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Feedback, error) {
	var out []*domain.Feedback
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.Resolve(r.db).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// ExistingDedupKeysForBatch loads the (normalised_text, source, customer_id)
// triples already persisted for a batch. The upload pipeline does not call
// it; it dedupes within a batch with an in-memory key set.
func (r *feedbackRepo) ExistingDedupKeysForBatch(dbc dbctx.Context, batchID uuid.UUID) (map[string]bool, error) {
	var rows []domain.Feedback
	err := dbc.Resolve(r.db).
		Select("normalized_text", "source", "customer_id").
		Where("batch_id = ?", batchID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		out[row.DedupKey()] = true
	}
	return out, nil
}

func (r *feedbackRepo) ListByBatch(dbc dbctx.Context, batchID uuid.UUID) ([]*domain.Feedback, error) {
	var out []*domain.Feedback
	err := dbc.Resolve(r.db).Where("batch_id = ?", batchID).Find(&out).Error
	return out, err
}

func (r *feedbackRepo) CountSince(dbc dbctx.Context, since time.Time) (int64, error) {
	var count int64
	err := dbc.Resolve(r.db).Model(&domain.Feedback{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *feedbackRepo) ListByTopic(dbc dbctx.Context, topicID uint, page, pageSize int) ([]*domain.Feedback, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	tx := dbc.Resolve(r.db).Table("feedback AS f").
		Joins("JOIN annotation a ON a.feedback_id = f.id").
		Where("f.deleted_at IS NULL AND a.topic_id = ?", topicID)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*domain.Feedback
	err := tx.Select("f.*").
		Order("f.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

func (r *feedbackRepo) CountOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := dbc.Resolve(r.db).Model(&domain.Feedback{}).Where("created_at < ?", cutoff).Count(&count).Error
	return count, err
}

// SoftDeleteOlderThan relies on gorm's soft-delete hook: Feedback embeds
// gorm.DeletedAt, so a plain Delete sets deleted_at instead of removing the
// row, keeping it out of every live query (StreamFilter, GetByID, ...)
// while leaving it in place for audit/recovery.
func (r *feedbackRepo) SoftDeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	tx := dbc.Resolve(r.db).Where("created_at < ?", cutoff).Delete(&domain.Feedback{})
	return tx.RowsAffected, tx.Error
}

func applyExportFilter(tx *gorm.DB, f ExportFilter) *gorm.DB {
	if f.Source != nil {
		tx = tx.Where("f.source = ?", *f.Source)
	}
	if f.CustomerID != nil {
		tx = tx.Where("f.customer_id = ?", *f.CustomerID)
	}
	if f.StartDate != nil {
		tx = tx.Where("f.created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		tx = tx.Where("f.created_at <= ?", *f.EndDate)
	}
	if f.SentimentMin != nil {
		tx = tx.Where("a.sentiment_class >= ?", *f.SentimentMin)
	}
	if f.SentimentMax != nil {
		tx = tx.Where("a.sentiment_class <= ?", *f.SentimentMax)
	}
	if f.TopicID != nil {
		tx = tx.Where("a.topic_id = ?", *f.TopicID)
	}
	if f.Sentiment != nil {
		tx = tx.Where("a.sentiment_class = ?", *f.Sentiment)
	}
	return tx
}

// exportRow is the flat projection scanned per cursor row; gorm's ScanRows
// maps columns onto it by name, which sidesteps hand-rolling conversions
// for the jsonb/uuid custom Scanner types.
type exportRow struct {
	domain.Feedback
	SentimentClass      *int
	SentimentConfidence *float64
	TopicID             *uint
	ToxicityScore       *float64
	ModelVersion        *string
	AnnotationUpdatedAt *time.Time
}

// StreamFilter backs the export engine (C8): a server-side cursor via
// gorm's Rows(), never materialising the full result set. Mirrors the
// cursor-iterate idiom the teacher uses for its own bulk-export paths,
// generalised to a typed callback instead of raw sql.Rows handling.
func (r *feedbackRepo) StreamFilter(dbc dbctx.Context, f ExportFilter, fn func(*domain.Feedback, *domain.Annotation) error) error {
	base := dbc.Resolve(r.db).Table("feedback AS f").
		Joins("LEFT JOIN annotation a ON a.feedback_id = f.id").
		Where("f.deleted_at IS NULL").
		Select(`f.id, f.source, f.customer_id, f.body, f.normalized_text, f.language, f.metadata,
			f.batch_id, f.created_at, f.deleted_at,
			a.sentiment_class, a.sentiment_confidence, a.topic_id, a.toxicity_score, a.model_version,
			a.updated_at AS annotation_updated_at`)
	base = applyExportFilter(base, f)
	base = base.Order("f.created_at ASC")

	rows, err := base.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row exportRow
		if err := r.db.ScanRows(rows, &row); err != nil {
			return err
		}
		ann := &domain.Annotation{
			FeedbackID:          row.Feedback.ID,
			SentimentClass:      row.SentimentClass,
			SentimentConfidence: row.SentimentConfidence,
			TopicID:             row.TopicID,
			ToxicityScore:       row.ToxicityScore,
		}
		if row.ModelVersion != nil {
			ann.ModelVersion = *row.ModelVersion
		}
		if row.AnnotationUpdatedAt != nil {
			ann.UpdatedAt = *row.AnnotationUpdatedAt
		}
		if err := fn(&row.Feedback, ann); err != nil {
			return err
		}
	}
	return rows.Err()
}
