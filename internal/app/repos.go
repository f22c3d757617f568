package app

import (
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/repos"
)

// Repos bundles every repository, grounded on the teacher's app.Repos
// (internal/app/repos.go) wiring shape: one field per repository, all
// constructed from the same *gorm.DB.
type Repos struct {
	Feedback       repos.FeedbackRepo
	Annotation     repos.AnnotationRepo
	Topic          repos.TopicRepo
	UnassignedPool repos.UnassignedPoolRepo
	Batch          repos.BatchRepo
	Analytics      repos.AnalyticsRepo
	Audit          repos.AuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repositories")
	return Repos{
		Feedback:       repos.NewFeedbackRepo(db, log),
		Annotation:     repos.NewAnnotationRepo(db, log),
		Topic:          repos.NewTopicRepo(db, log),
		UnassignedPool: repos.NewUnassignedPoolRepo(db, log),
		Batch:          repos.NewBatchRepo(db, log),
		Analytics:      repos.NewAnalyticsRepo(db, log),
		Audit:          repos.NewAuditRepo(db, log),
	}
}
