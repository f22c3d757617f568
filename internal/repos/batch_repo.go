package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type BatchRepo interface {
	Create(dbc dbctx.Context, b *domain.Batch) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Batch, error)
	UpdateCounters(dbc dbctx.Context, id uuid.UUID, counters domain.BatchCounters) error
	SetStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	SetJobID(dbc dbctx.Context, id uuid.UUID, jobID uuid.UUID) error
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	return &batchRepo{db: db, log: baseLog.With("repo", "BatchRepo")}
}

func (r *batchRepo) Create(dbc dbctx.Context, b *domain.Batch) error {
	return dbc.Resolve(r.db).Create(b).Error
}

func (r *batchRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Batch, error) {
	var b domain.Batch
	if err := dbc.Resolve(r.db).Where("id = ?", id).First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *batchRepo) UpdateCounters(dbc dbctx.Context, id uuid.UUID, counters domain.BatchCounters) error {
	b := domain.Batch{}
	b.SetCounters(counters)
	return dbc.Resolve(r.db).Model(&domain.Batch{}).Where("id = ?", id).Update("counters", b.Counters).Error
}

func (r *batchRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	return dbc.Resolve(r.db).Model(&domain.Batch{}).Where("id = ?", id).Update("status", status).Error
}

func (r *batchRepo) SetJobID(dbc dbctx.Context, id uuid.UUID, jobID uuid.UUID) error {
	return dbc.Resolve(r.db).Model(&domain.Batch{}).Where("id = ?", id).Update("job_id", jobID).Error
}
