// Package admin implements the admin mutation engine of spec §4.9 (C9):
// RelabelTopic and ReassignFeedback, each a single transaction spanning
// the mutation, an audit append, and the follow-up cache/materialised-view
// invalidation. Grounded on the teacher's AuthService.LoginUser/RefreshUser
// transaction shape — read current state inside the tx, mutate, write
// dependent rows, return only after commit.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/analytics"
	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/db"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

type Service struct {
	log            *logger.Logger
	store          *db.Service
	topicRepo      repos.TopicRepo
	annotationRepo repos.AnnotationRepo
	auditRepo      repos.AuditRepo
	feedbackRepo   repos.FeedbackRepo
	analytics      *analytics.Service
}

func NewService(log *logger.Logger, store *db.Service, topicRepo repos.TopicRepo, annotationRepo repos.AnnotationRepo, auditRepo repos.AuditRepo, feedbackRepo repos.FeedbackRepo, analyticsSvc *analytics.Service) *Service {
	return &Service{
		log:            log.With("service", "AdminService"),
		store:          store,
		topicRepo:      topicRepo,
		annotationRepo: annotationRepo,
		auditRepo:      auditRepo,
		feedbackRepo:   feedbackRepo,
		analytics:      analyticsSvc,
	}
}

// Actor identifies who performed a mutation, carried into the audit row.
type Actor struct {
	Subject string
	IP      string
	Agent   string
}

// RelabelTopic renames a topic and/or replaces its keyword list, appending
// one audit entry recording the before/after label+keywords (spec §4.9).
func (s *Service) RelabelTopic(ctx context.Context, actor Actor, topicID uint, newLabel string, newKeywords []string) (*domain.Topic, error) {
	if newLabel == "" {
		return nil, apperr.Validationf("label must not be empty")
	}

	var result *domain.Topic
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		before, err := s.topicRepo.Relabel(dbc, topicID, newLabel, domain.StringSlice(newKeywords))
		if err != nil {
			return err
		}
		if before == nil {
			return apperr.NotFoundf("topic %d not found", topicID)
		}
		entry := &domain.AuditEntry{
			TopicID: &topicID,
			Action:  domain.AuditRelabel,
			Before:  domain.JSONMap{"label": before.Label, "keywords": before.Keywords},
			After:   domain.JSONMap{"label": newLabel, "keywords": newKeywords},
			ActorSubject: actor.Subject,
			ActorIP:      actor.IP,
			ActorAgent:   actor.Agent,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.auditRepo.Append(dbc, []*domain.AuditEntry{entry}); err != nil {
			return err
		}
		result = before
		result.Label = newLabel
		result.Keywords = domain.StringSlice(newKeywords)
		return nil
	})
	if err != nil {
		return nil, apperr.As(err)
	}
	s.afterCommit(ctx)
	return result, nil
}

// ReassignFeedback moves a set of feedback items' annotations onto a
// different topic, appending one audit entry covering the whole batch
// (spec §4.9: "one audit entry per admin action, not one per affected
// row").
func (s *Service) ReassignFeedback(ctx context.Context, actor Actor, feedbackIDs []uuid.UUID, toTopicID uint) (int64, error) {
	if len(feedbackIDs) == 0 {
		return 0, apperr.Validationf("feedback_ids must not be empty")
	}

	var affected int64
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		exists, err := s.topicRepo.Exists(dbc, toTopicID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFoundf("topic %d not found", toTopicID)
		}
		n, err := s.annotationRepo.SetTopicForFeedbackIDs(dbc, feedbackIDs, toTopicID)
		if err != nil {
			return err
		}
		affected = n
		idStrings := make([]string, len(feedbackIDs))
		for i, id := range feedbackIDs {
			idStrings[i] = id.String()
		}
		entry := &domain.AuditEntry{
			TopicID: &toTopicID,
			Action:  domain.AuditReassign,
			After:   domain.JSONMap{"feedback_ids": idStrings, "to_topic_id": toTopicID, "affected_count": n},
			ActorSubject: actor.Subject,
			ActorIP:      actor.IP,
			ActorAgent:   actor.Agent,
			CreatedAt:    time.Now().UTC(),
		}
		return s.auditRepo.Append(dbc, []*domain.AuditEntry{entry})
	})
	if err != nil {
		return 0, apperr.As(err)
	}
	s.afterCommit(ctx)
	return affected, nil
}

// DeleteTopic removes a topic and reassigns its dependent annotations to
// the sentinel unassigned topic (spec §3 Topic lifecycle), auditing both
// effects as one entry.
func (s *Service) DeleteTopic(ctx context.Context, actor Actor, topicID uint) error {
	if topicID == domain.UnassignedTopicID {
		return apperr.Validationf("the unassigned topic cannot be deleted")
	}
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		topic, err := s.topicRepo.GetByID(dbc, topicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return apperr.NotFoundf("topic %d not found", topicID)
		}
		reassigned, err := s.annotationRepo.ReassignTopic(dbc, topicID, domain.UnassignedTopicID)
		if err != nil {
			return err
		}
		if err := s.topicRepo.Delete(dbc, topicID); err != nil {
			return err
		}
		entry := &domain.AuditEntry{
			TopicID: &topicID,
			Action:  domain.AuditDelete,
			Before:  domain.JSONMap{"label": topic.Label},
			After:   domain.JSONMap{"reassigned_count": reassigned, "reassigned_to": domain.UnassignedTopicID},
			ActorSubject: actor.Subject,
			ActorIP:      actor.IP,
			ActorAgent:   actor.Agent,
			CreatedAt:    time.Now().UTC(),
		}
		return s.auditRepo.Append(dbc, []*domain.AuditEntry{entry})
	})
	if err != nil {
		return apperr.As(err)
	}
	s.afterCommit(ctx)
	return nil
}

// CleanupOldData soft-deletes feedback rows created before now-daysOld
// (spec §4.9 cleanup endpoint). With dryRun it only counts what a real run
// would affect, mutating nothing and appending no audit entry. Soft delete
// relies on Feedback.DeletedAt: rows stay in place for audit/recovery but
// drop out of every live query.
func (s *Service) CleanupOldData(ctx context.Context, actor Actor, daysOld int, dryRun bool) (int64, error) {
	if daysOld <= 0 {
		return 0, apperr.Validationf("days_old must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)

	if dryRun {
		n, err := s.feedbackRepo.CountOlderThan(dbctx.New(ctx), cutoff)
		if err != nil {
			return 0, apperr.Wrap(apperr.Internal, "count stale feedback", err)
		}
		return n, nil
	}

	var affected int64
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		n, err := s.feedbackRepo.SoftDeleteOlderThan(dbc, cutoff)
		if err != nil {
			return err
		}
		affected = n
		entry := &domain.AuditEntry{
			Action:       domain.AuditCleanup,
			After:        domain.JSONMap{"cutoff": cutoff, "days_old": daysOld, "deleted_count": n},
			ActorSubject: actor.Subject,
			ActorIP:      actor.IP,
			ActorAgent:   actor.Agent,
			CreatedAt:    time.Now().UTC(),
		}
		return s.auditRepo.Append(dbc, []*domain.AuditEntry{entry})
	})
	if err != nil {
		return 0, apperr.As(err)
	}
	s.afterCommit(ctx)
	return affected, nil
}

// Stats is the operator-facing headline count set behind GET /admin/stats:
// total live feedback, topic count, and total audit-log entry count,
// each a cheap count rather than a full analytics rollup.
type Stats struct {
	TotalFeedback int64 `json:"total_feedback"`
	TotalTopics   int64 `json:"total_topics"`
	TotalAudits   int64 `json:"total_audit_entries"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	dbc := dbctx.New(ctx)
	total, err := s.feedbackRepo.CountSince(dbc, time.Time{})
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.Internal, "count feedback", err)
	}
	topics, err := s.topicRepo.List(dbc)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.Internal, "list topics", err)
	}
	_, totalAudits, err := s.auditRepo.ListByTopic(dbc, nil, 1, 1)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.Internal, "count audit entries", err)
	}
	return Stats{TotalFeedback: total, TotalTopics: int64(len(topics)), TotalAudits: totalAudits}, nil
}

// DatabaseHealth round-trips a pooled connection, backing GET
// /admin/health/database.
func (s *Service) DatabaseHealth(ctx context.Context) error {
	return s.store.Ping()
}

// RefreshMaterializedView triggers an out-of-band refresh of the daily
// aggregate rollup, backing POST /admin/maintenance/refresh-materialized-view.
func (s *Service) RefreshMaterializedView(ctx context.Context) error {
	if err := s.store.RefreshDailyAggregates(); err != nil {
		return apperr.Wrap(apperr.Internal, "refresh materialized view", err)
	}
	s.analytics.InvalidateAll(ctx)
	return nil
}

// TopicFeedback paginates the feedback currently annotated with topicID,
// backing GET /admin/topics/{id}/feedback.
func (s *Service) TopicFeedback(ctx context.Context, topicID uint, page, pageSize int) ([]*domain.Feedback, int64, error) {
	rows, total, err := s.feedbackRepo.ListByTopic(dbctx.New(ctx), topicID, page, pageSize)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list feedback by topic", err)
	}
	return rows, total, nil
}

// ClearCache flushes every cached analytics entry on admin request,
// independent of any mutation — the same invalidation afterCommit triggers
// automatically after a write, exposed directly for operator use.
func (s *Service) ClearCache(ctx context.Context, actor Actor) {
	s.analytics.InvalidateAll(ctx)
	s.log.Info("analytics cache cleared by admin", "actor", actor.Subject)
}

// afterCommit invalidates the analytics cache and kicks a materialised
// view refresh now that the transaction committed — both are best-effort:
// a failure here leaves stale-but-eventually-correct data rather than
// rolling back an already-committed mutation.
func (s *Service) afterCommit(ctx context.Context) {
	s.analytics.InvalidateAll(ctx)
	if err := s.store.RefreshDailyAggregates(); err != nil {
		s.log.Warn("post-mutation materialised view refresh failed", "error", err)
	}
}

func (s *Service) AuditLog(ctx context.Context, topicID *uint, page, pageSize int) ([]*domain.AuditEntry, int64, error) {
	entries, total, err := s.auditRepo.ListByTopic(dbctx.New(ctx), topicID, page, pageSize)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "load audit log", err)
	}
	return entries, total, nil
}
