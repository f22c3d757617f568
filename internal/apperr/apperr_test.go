package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation:       http.StatusUnprocessableEntity,
		AuthMissing:      http.StatusUnauthorized,
		AuthInsufficient: http.StatusForbidden,
		NotFound:         http.StatusNotFound,
		TooLarge:         http.StatusRequestEntityTooLarge,
		RateLimited:      http.StatusTooManyRequests,
		Timeout:          http.StatusRequestTimeout,
		Conflict:         http.StatusConflict,
		Unavailable:      http.StatusServiceUnavailable,
		Internal:         http.StatusInternalServerError,
		Kind("unknown"):  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind %s", kind)
	}
}

func TestAs_PassesThroughTypedError(t *testing.T) {
	original := New(NotFound, "topic missing")
	got := As(original)
	require.Same(t, original, got)
}

func TestAs_ClassifiesUnknownErrorsAsInternal(t *testing.T) {
	got := As(errors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, Internal, got.Kind)
	assert.ErrorIs(t, got, got.cause)
}

func TestAs_Nil(t *testing.T) {
	assert.Nil(t, As(nil))
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("db closed")
	wrapped := Wrap(Unavailable, "query failed", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "db closed")
}

func TestHelperConstructors(t *testing.T) {
	assert.Equal(t, Validation, Validationf("bad %s", "input").Kind)
	assert.Equal(t, NotFound, NotFoundf("topic %d", 7).Kind)
	assert.Equal(t, Conflict, Conflictf("dup %s", "row").Kind)
}
