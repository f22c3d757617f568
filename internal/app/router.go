package app

import (
	"github.com/gin-gonic/gin"

	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/httpapi"
	"github.com/feedback-intel/core/internal/observability"
	"github.com/feedback-intel/core/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg config.Config, handlers *httpapi.Handlers, mw Middleware, metrics *observability.Metrics) *gin.Engine {
	return httpapi.NewRouter(log, httpapi.RouterConfig{
		Handlers:     handlers,
		AuthMW:       mw.Auth,
		RateLimiters: mw.RateLimiters,
		Metrics:      metrics,
		CORS:         cfg,
	})
}
