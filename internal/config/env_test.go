package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv_DefaultsWhenUnset(t *testing.T) {
	t.Setenv("FOO_UNSET_KEY", "")
	assert.Equal(t, "fallback", GetEnv("FOO_UNSET_KEY", "fallback", nil))
}

func TestGetEnv_UsesSetValue(t *testing.T) {
	t.Setenv("FOO_SET_KEY", "  configured  ")
	assert.Equal(t, "configured", GetEnv("FOO_SET_KEY", "fallback", nil))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("FOO_INT_KEY", "42")
	assert.Equal(t, 42, GetEnvAsInt("FOO_INT_KEY", 7, nil))

	t.Setenv("FOO_INT_BAD", "not-a-number")
	assert.Equal(t, 7, GetEnvAsInt("FOO_INT_BAD", 7, nil))
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("FOO_FLOAT_KEY", "0.85")
	assert.InDelta(t, 0.85, GetEnvAsFloat("FOO_FLOAT_KEY", 0.5, nil), 0.0001)

	t.Setenv("FOO_FLOAT_BAD", "nope")
	assert.InDelta(t, 0.5, GetEnvAsFloat("FOO_FLOAT_BAD", 0.5, nil), 0.0001)
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("FOO_BOOL_KEY", "true")
	assert.True(t, GetEnvAsBool("FOO_BOOL_KEY", false, nil))

	t.Setenv("FOO_BOOL_BAD", "maybe")
	assert.False(t, GetEnvAsBool("FOO_BOOL_BAD", false, nil))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("FOO_DUR_KEY", "5s")
	assert.Equal(t, 5*time.Second, GetEnvAsDuration("FOO_DUR_KEY", time.Second, nil))

	t.Setenv("FOO_DUR_BAD", "five seconds")
	assert.Equal(t, time.Second, GetEnvAsDuration("FOO_DUR_BAD", time.Second, nil))
}
