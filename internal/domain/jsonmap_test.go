package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ValueScanRoundTrip(t *testing.T) {
	m := JSONMap{"source": "zendesk", "priority": float64(2)}

	v, err := m.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, m, out)
}

func TestJSONMap_NilValue(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestJSONMap_ScanNil(t *testing.T) {
	m := JSONMap{"a": 1}
	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
}

func TestJSONMap_ScanString(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(`{"k":"v"}`))
	assert.Equal(t, JSONMap{"k": "v"}, m)
}

func TestJSONMap_ScanUnsupportedType(t *testing.T) {
	var m JSONMap
	err := m.Scan(42)
	assert.Error(t, err)
}
