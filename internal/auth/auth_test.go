package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/platform/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	cfg := config.Config{
		JWTSecretKey:   "test-secret",
		TokenLifetime:  time.Minute,
		AdminUsername:  "admin",
		AdminPassword:  "admin-pass",
		ViewerUsername: "viewer",
		ViewerPassword: "viewer-pass",
	}
	return NewService(log, cfg)
}

func TestLogin_AdminCredentials(t *testing.T) {
	s := testService(t)
	token, expiresIn, role, err := s.Login("admin", "admin-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 60, expiresIn)
	assert.Equal(t, RoleAdmin, role)
}

func TestLogin_ViewerCredentials(t *testing.T) {
	s := testService(t)
	_, _, role, err := s.Login("viewer", "viewer-pass")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := testService(t)
	_, _, _, err := s.Login("admin", "wrong-pass")
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.AuthMissing, ae.Kind)
}

func TestValidate_RoundTripsIssuedToken(t *testing.T) {
	s := testService(t)
	token, _, role, err := s.Login("admin", "admin-pass")
	require.NoError(t, err)

	gotRole, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, role, gotRole)
}

func TestValidate_EmptyToken(t *testing.T) {
	s := testService(t)
	_, err := s.Validate("")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthMissing, apperr.As(err).Kind)
}

func TestValidate_GarbageToken(t *testing.T) {
	s := testService(t)
	_, err := s.Validate("not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthMissing, apperr.As(err).Kind)
}

func TestValidate_TokenSignedWithDifferentSecretRejected(t *testing.T) {
	s := testService(t)
	other := testService(t)
	other.secret = []byte("different-secret")

	token, _, _, err := other.Login("admin", "admin-pass")
	require.NoError(t, err)

	_, err = s.Validate(token)
	require.Error(t, err)
}

func TestRoleFromContext_RoundTrip(t *testing.T) {
	ctx := WithRole(context.Background(), RoleAdmin)
	assert.Equal(t, RoleAdmin, RoleFromContext(ctx))
}

func TestRoleFromContext_Empty(t *testing.T) {
	assert.Equal(t, Role(""), RoleFromContext(context.Background()))
}
