package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/feedback-intel/core/internal/auth"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/observability"
	"github.com/feedback-intel/core/internal/platform/logger"
)

// RouterConfig assembles everything NewRouter needs to wire routes: the
// handler set, the auth middleware, and the per-tier rate limiters. Mirrors
// the teacher's RouterConfig shape of named, independently-nilable fields.
type RouterConfig struct {
	Handlers     *Handlers
	AuthMW       *AuthMiddleware
	RateLimiters RateLimiters
	Metrics      *observability.Metrics
	CORS         config.Config
}

// NewRouter wires the flat route surface of the external interface: no
// version prefix, ingestion reachable without a token, analytics, chat
// and export behind a viewer (or admin) token, and every admin mutation
// behind an admin token.
func NewRouter(log *logger.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Metrics(cfg.Metrics))
	r.Use(CORS(cfg.CORS))

	h := cfg.Handlers

	r.GET("/health", h.Health)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	// Ingestion is unauthenticated (spec §6): anyone can submit feedback,
	// only reading it back requires a token. Still rate-limited, on the
	// upload tier, so a single client can't flood the enrichment queue.
	ingest := r.Group("/ingest")
	ingest.Use(cfg.RateLimiters.Upload.Middleware())
	{
		ingest.POST("/feedback", h.IngestOne)
		ingest.POST("/feedback/batch", h.IngestBatch)
		ingest.POST("/upload/csv", h.UploadCSV)
		ingest.POST("/upload/json", h.UploadJSONL)
	}

	viewer := r.Group("/")
	viewer.Use(cfg.AuthMW.RequireRole(auth.RoleViewer))
	{
		viewer.GET("/api/feedback/:id", h.GetFeedback)

		analyticsGroup := viewer.Group("/analytics")
		analyticsGroup.Use(cfg.RateLimiters.Analytics.Middleware())
		{
			analyticsGroup.GET("/sentiment-trends", h.SentimentTrend)
			analyticsGroup.GET("/volume-trends", h.VolumeTrend)
			analyticsGroup.GET("/daily-aggregates", h.DailyAggregates)
			analyticsGroup.GET("/customers", h.CustomerStats)
			analyticsGroup.GET("/sources", h.SourceStats)
			analyticsGroup.GET("/toxicity", h.ToxicityStats)
			analyticsGroup.GET("/summary", h.Summary)
			analyticsGroup.GET("/topics", h.TopicBreakdown)
			analyticsGroup.GET("/examples", h.Examples)
			analyticsGroup.GET("/dashboard/summary", h.DashboardSummary)
		}

		chatGroup := viewer.Group("/chat")
		chatGroup.Use(cfg.RateLimiters.Analytics.Middleware())
		{
			chatGroup.POST("/query", h.Ask)
			chatGroup.GET("/conversations", h.Conversations)
			chatGroup.POST("/clear-memory", h.ClearMemory)
			chatGroup.GET("/suggestions", h.Suggestions)
		}

		exportGroup := viewer.Group("/api/export")
		exportGroup.Use(cfg.RateLimiters.Analytics.Middleware())
		{
			exportGroup.GET("/export.csv", h.ExportFeedback)
			exportGroup.GET("/export/topics.csv", h.ExportTopics)
			exportGroup.GET("/export/analytics.csv", h.ExportDailyAggregates)
		}
	}

	adminPublic := r.Group("/admin")
	adminPublic.Use(cfg.RateLimiters.General.Middleware())
	{
		adminPublic.POST("/login", h.Login)
		adminPublic.POST("/viewer/login", h.Login)
	}

	admin := r.Group("/admin")
	admin.Use(cfg.AuthMW.RequireRole(auth.RoleAdmin))
	admin.Use(cfg.RateLimiters.Admin.Middleware())
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/health/database", h.AdminDatabaseHealth)
		admin.POST("/maintenance/refresh-materialized-view", h.AdminRefreshMaterializedView)

		admin.GET("/topics", h.ListTopics)
		admin.POST("/relabel-topic", h.RelabelTopic)
		admin.POST("/reassign-feedback", h.ReassignFeedback)
		admin.DELETE("/topics/:id", h.DeleteTopic)
		admin.GET("/topics/:id/feedback", h.AdminTopicFeedback)

		admin.GET("/topic-audit", h.AuditLog)
		admin.GET("/topic-audit/:topic_id", h.AuditLog)

		admin.POST("/cleanup/old-data", h.AdminCleanupOldData)
		admin.POST("/cache/clear", h.AdminCacheClear)
	}

	return r
}
