package app

import (
	"github.com/feedback-intel/core/internal/auth"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/httpapi"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type Middleware struct {
	Auth         *httpapi.AuthMiddleware
	RateLimiters httpapi.RateLimiters
}

func wireMiddleware(log *logger.Logger, cfg config.Config, authSvc *auth.Service) Middleware {
	return Middleware{
		Auth:         httpapi.NewAuthMiddleware(log, authSvc),
		RateLimiters: httpapi.NewRateLimiters(cfg),
	}
}
