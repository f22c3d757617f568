package app

import (
	"github.com/feedback-intel/core/internal/admin"
	"github.com/feedback-intel/core/internal/analytics"
	"github.com/feedback-intel/core/internal/auth"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/db"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/enrichment"
	"github.com/feedback-intel/core/internal/export"
	"github.com/feedback-intel/core/internal/ingestion"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/qa"
)

// Services bundles the domain services, grounded on the teacher's
// app.Services (internal/app/services.go): each service built from the
// Repos/Clients bundles, plus the four enrichment worker pools named by
// spec §4.3's queue list.
type Services struct {
	Ingestion *ingestion.Pipeline
	Analytics *analytics.Service
	Export    *export.Service
	Admin     *admin.Service
	Auth      *auth.Service
	QA        *qa.Agent

	Stages          *enrichment.Stages
	Pools           []*enrichment.Pool
	WorkerConcurrency int
}

func wireServices(log *logger.Logger, store *db.Service, cfg config.Config, r Repos, c Clients) Services {
	log.Info("wiring services")

	ingestionPipeline := ingestion.New(log, r.Feedback, r.Batch, c.Queue, cfg)

	analyticsSvc := analytics.NewService(log, r.Analytics, c.Cache)

	exportSvc := export.NewService(log, r.Feedback, r.Topic, r.Analytics)

	adminSvc := admin.NewService(log, store, r.Topic, r.Annotation, r.Audit, r.Feedback, analyticsSvc)

	authSvc := auth.NewService(log, cfg)

	tools := []qa.Tool{
		qa.NewAnalyticsSQLTool(r.Analytics),
		qa.NewVectorExamplesTool(r.Analytics),
		qa.NewReportWriterTool(),
	}
	qaAgent := qa.NewAgent(log, c.OpenAI, tools, cfg)

	stages := enrichment.NewStages(
		log,
		r.Feedback, r.Annotation, r.Topic, r.UnassignedPool, r.Batch,
		c.Cache, store, c.VectorStore, c.Sentiment, c.Queue,
		cfg.ClusterSimilarityThreshold, cfg.UnassignedPoolThreshold,
	)

	pools := []*enrichment.Pool{
		enrichment.NewPool(log, c.Queue, domain.QueueIngest, stages.Ingest, cfg.WorkerConcurrency),
		enrichment.NewPool(log, c.Queue, domain.QueueAnnotate, stages.Annotate, cfg.WorkerConcurrency),
		enrichment.NewPool(log, c.Queue, domain.QueueCluster, stages.Cluster, cfg.WorkerConcurrency),
		enrichment.NewPool(log, c.Queue, domain.QueueReports, stages.Reports, cfg.WorkerConcurrency),
	}

	return Services{
		Ingestion:         ingestionPipeline,
		Analytics:         analyticsSvc,
		Export:            exportSvc,
		Admin:             adminSvc,
		Auth:              authSvc,
		QA:                qaAgent,
		Stages:            stages,
		Pools:             pools,
		WorkerConcurrency: cfg.WorkerConcurrency,
	}
}
