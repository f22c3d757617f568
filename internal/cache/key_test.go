package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyticsKey_StableAcrossParamOrder(t *testing.T) {
	a := AnalyticsKey("sentiment-trend", map[string]string{"customer": "acme", "source": "zendesk"})
	b := AnalyticsKey("sentiment-trend", map[string]string{"source": "zendesk", "customer": "acme"})
	assert.Equal(t, a, b)
}

func TestAnalyticsKey_DiffersByParamValue(t *testing.T) {
	a := AnalyticsKey("sentiment-trend", map[string]string{"customer": "acme"})
	b := AnalyticsKey("sentiment-trend", map[string]string{"customer": "globex"})
	assert.NotEqual(t, a, b)
}

func TestAnalyticsKey_DiffersByEndpoint(t *testing.T) {
	params := map[string]string{"customer": "acme"}
	a := AnalyticsKey("sentiment-trend", params)
	b := AnalyticsKey("volume-trend", params)
	assert.NotEqual(t, a, b)
}

func TestAnalyticsKey_HasEndpointPrefix(t *testing.T) {
	key := AnalyticsKey("summary", map[string]string{})
	assert.Contains(t, key, "analytics:summary:")
}

func TestAnalyticsPrefix(t *testing.T) {
	assert.Equal(t, "analytics:", AnalyticsPrefix(""))
	assert.Equal(t, "analytics:summary:", AnalyticsPrefix("summary"))
}
