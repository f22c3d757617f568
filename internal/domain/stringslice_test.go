package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice_ValueScanRoundTrip(t *testing.T) {
	s := StringSlice{"refund", "shipping delay"}

	v, err := s.Value()
	require.NoError(t, err)

	var out StringSlice
	require.NoError(t, out.Scan(v))
	assert.Equal(t, s, out)
}

func TestStringSlice_NilValue(t *testing.T) {
	var s StringSlice
	v, err := s.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStringSlice_ScanEmptyBytesStaysNil(t *testing.T) {
	s := StringSlice{"x"}
	require.NoError(t, s.Scan([]byte{}))
	assert.Nil(t, s)
}

func TestStringSlice_ScanUnsupportedType(t *testing.T) {
	var s StringSlice
	err := s.Scan(3.14)
	assert.Error(t, err)
}
