package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(remoteAddr string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = remoteAddr
	c.Request = req
	return c, w
}

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	mw := rl.Middleware()

	c1, w1 := newTestContext("10.0.0.1:1111")
	mw(c1)
	require.False(t, c1.IsAborted())
	assert.NotEqual(t, http.StatusTooManyRequests, w1.Code)

	c2, w2 := newTestContext("10.0.0.1:1111")
	mw(c2)
	require.False(t, c2.IsAborted())
	assert.NotEqual(t, http.StatusTooManyRequests, w2.Code)

	c3, w3 := newTestContext("10.0.0.1:1111")
	mw(c3)
	assert.True(t, c3.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
}

func TestRateLimiter_SeparateKeysDoNotShareBudget(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	mw := rl.Middleware()

	c1, _ := newTestContext("10.0.0.2:1111")
	mw(c1)
	assert.False(t, c1.IsAborted())

	c2, _ := newTestContext("10.0.0.3:1111")
	mw(c2)
	assert.False(t, c2.IsAborted())
}
