package app

import (
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/httpapi"
	"github.com/feedback-intel/core/internal/platform/logger"
)

func wireHandlers(log *logger.Logger, cfg config.Config, r Repos, s Services) *httpapi.Handlers {
	return httpapi.NewHandlers(
		log,
		s.Ingestion,
		s.Analytics,
		s.Export,
		s.Admin,
		s.Auth,
		s.QA,
		cfg.QATimeout,
		r.Feedback,
		r.Topic,
	)
}
