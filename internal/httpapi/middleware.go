// Package httpapi is the HTTP surface of spec §4.12 (C12): Gin router,
// middleware chain, and handlers for every route in spec §6. Grounded on
// the teacher's internal/http/middleware package (RequestLogger, CORS,
// AuthMiddleware), generalised from per-user sessions to the two-role
// admin/viewer model of internal/auth.
package httpapi

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/auth"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/observability"
	"github.com/feedback-intel/core/internal/platform/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns a request id from the inbound header, or mints one,
// and echoes it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request at a level keyed on status,
// mirroring the teacher's RequestLogger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		}
		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// Metrics instruments request counts/latency, grounded on the teacher's
// own Metrics gin middleware but backed by the real prometheus registry.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func CORS(cfg config.Config) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
	})
}

// RateLimiter hands out per-tier, per-client token buckets (keyed by client
// IP, prefixed with the caller's role once auth has run) backed by
// golang.org/x/time/rate, grounded on spec §4.12's four-tier model and
// the pack's token-bucket idiom rather than a hand-rolled counter.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
}

func NewRateLimiter(rpm, burst int) *RateLimiter {
	return &RateLimiter{
		rps:   rate.Limit(float64(rpm) / 60.0),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.byKey[key]
	if !ok {
		l = rate.NewLimiter(rl.rps, rl.burst)
		rl.byKey[key] = l
	}
	return l
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if role := auth.RoleFromContext(c.Request.Context()); role != "" {
			key = string(role) + ":" + key
		}
		if !rl.limiterFor(key).Allow() {
			WriteError(c, apperr.New(apperr.RateLimited, "rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiters bundles the four tiers of spec §4.12 so handlers wire one
// by name rather than threading four limiter instances through Services.
type RateLimiters struct {
	General   *RateLimiter
	Analytics *RateLimiter
	Admin     *RateLimiter
	Upload    *RateLimiter
}

func NewRateLimiters(cfg config.Config) RateLimiters {
	return RateLimiters{
		General:   NewRateLimiter(cfg.RateLimitGeneralRPM, cfg.RateLimitGeneralBurst),
		Analytics: NewRateLimiter(cfg.RateLimitAnalyticsRPM, cfg.RateLimitAnalyticsBurst),
		Admin:     NewRateLimiter(cfg.RateLimitAdminRPM, cfg.RateLimitAdminBurst),
		Upload:    NewRateLimiter(cfg.RateLimitUploadRPM, cfg.RateLimitUploadBurst),
	}
}

// AuthMiddleware wraps internal/auth.Service to attach a role to the
// request context (RequireRole(nil)) or reject requests lacking a role
// sufficient for the route (RequireRole(auth.RoleAdmin)).
type AuthMiddleware struct {
	log *logger.Logger
	svc *auth.Service
}

func NewAuthMiddleware(log *logger.Logger, svc *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "Auth"), svc: svc}
}

func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return c.Query("token")
}

// RequireRole validates the bearer token and, if minRole is non-empty,
// rejects viewers attempting an admin-only route. Passing "" requires any
// valid token (admin or viewer).
func (am *AuthMiddleware) RequireRole(minRole auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := am.svc.Validate(extractToken(c))
		if err != nil {
			WriteError(c, apperr.As(err))
			c.Abort()
			return
		}
		if minRole == auth.RoleAdmin && role != auth.RoleAdmin {
			WriteError(c, apperr.New(apperr.AuthInsufficient, "admin role required"))
			c.Abort()
			return
		}
		ctx := auth.WithRole(c.Request.Context(), role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// WriteError maps an *apperr.Error onto the HTTP status/body shape every
// handler returns on failure (spec §7).
func WriteError(c *gin.Context, err *apperr.Error) {
	body := gin.H{"error": gin.H{"kind": string(err.Kind), "message": err.Message}}
	if err.RetryAfter > 0 {
		c.Writer.Header().Set("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err.Kind), body)
}
