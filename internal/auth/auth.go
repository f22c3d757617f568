// Package auth implements the stateless admin/viewer JWT session model of
// spec §4.10 (C10), grounded on the teacher's AuthService token issuance
// and validation but simplified: credentials are two fixed
// environment-configured accounts rather than a user table, so there is no
// refresh-token store — a session is just a signed, expiring claim.
package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Claims is the JWT payload: subject is the role name itself since there
// is no per-user identity in this service, only two fixed accounts.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

type Service struct {
	log    *logger.Logger
	secret []byte
	ttl    time.Duration

	adminUser, adminPass   string
	viewerUser, viewerPass string
}

func NewService(log *logger.Logger, cfg config.Config) *Service {
	return &Service{
		log:        log.With("service", "AuthService"),
		secret:     []byte(cfg.JWTSecretKey),
		ttl:        cfg.TokenLifetime,
		adminUser:  cfg.AdminUsername,
		adminPass:  cfg.AdminPassword,
		viewerUser: cfg.ViewerUsername,
		viewerPass: cfg.ViewerPassword,
	}
}

// constantTimeEqual compares two credential strings without leaking
// timing information about where they first differ.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Login validates a username/password pair against the fixed admin or
// viewer account and, on success, issues a signed token carrying that
// role. Admin credentials are checked first so an operator account named
// identically to the viewer account (unlikely, but not forbidden by
// config) always resolves to admin.
func (s *Service) Login(username, password string) (token string, expiresIn int, role Role, err error) {
	var matchedRole Role
	switch {
	case constantTimeEqual(username, s.adminUser) && constantTimeEqual(password, s.adminPass):
		matchedRole = RoleAdmin
	case constantTimeEqual(username, s.viewerUser) && constantTimeEqual(password, s.viewerPass):
		matchedRole = RoleViewer
	default:
		return "", 0, "", apperr.New(apperr.AuthMissing, "invalid credentials")
	}

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(matchedRole),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: matchedRole,
	}
	signed, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if signErr != nil {
		return "", 0, "", apperr.Wrap(apperr.Internal, "sign token", signErr)
	}
	return signed, int(s.ttl.Seconds()), matchedRole, nil
}

// contextKey avoids collisions with any other package's context values.
type contextKey struct{}

var roleContextKey = contextKey{}

// WithRole returns a context carrying role, read back by RoleFromContext.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleContextKey, role)
}

// RoleFromContext returns the role attached by a prior Validate call, or
// "" if none is present (unauthenticated request).
func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(roleContextKey).(Role)
	return role
}

// Validate parses and verifies tokenString, returning the role it grants.
func (s *Service) Validate(tokenString string) (Role, error) {
	if tokenString == "" {
		return "", apperr.New(apperr.AuthMissing, "missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.Wrap(apperr.AuthMissing, "invalid or expired token", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || (claims.Role != RoleAdmin && claims.Role != RoleViewer) {
		return "", apperr.New(apperr.AuthMissing, "invalid token claims")
	}
	return claims.Role, nil
}
