package repos

import (
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type AuditRepo interface {
	Append(dbc dbctx.Context, entries []*domain.AuditEntry) error
	ListByTopic(dbc dbctx.Context, topicID *uint, page, pageSize int) ([]*domain.AuditEntry, int64, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{db: db, log: baseLog.With("repo", "AuditRepo")}
}

// Append writes one or more audit entries. Append-only: no update/delete
// method exists on this repo by design (spec §3: "never updated, never
// deleted").
func (r *auditRepo) Append(dbc dbctx.Context, entries []*domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return dbc.Resolve(r.db).Create(&entries).Error
}

func (r *auditRepo) ListByTopic(dbc dbctx.Context, topicID *uint, page, pageSize int) ([]*domain.AuditEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	tx := dbc.Resolve(r.db).Model(&domain.AuditEntry{})
	if topicID != nil {
		tx = tx.Where("topic_id = ?", *topicID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*domain.AuditEntry
	err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}
