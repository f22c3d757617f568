package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilMetrics_MethodsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPI("GET", "/x", "200", time.Millisecond)
		m.APIInflightInc()
		m.APIInflightDec()
		m.ObserveJobEnqueued("ingest")
		m.ObserveJobProcessed("ingest", "ack", time.Millisecond)
		m.SetQueueDepth("ingest", 3)
		m.ObserveModelCall("classify", "v1", time.Millisecond, nil)
		m.ObserveVectorStoreCall("upsert", time.Millisecond, nil)
		m.ObserveCache("summary", true)
		m.IncTopicSpawned()
		m.SetUnassignedPoolSize(4)
	})
}

func TestNilMetrics_HandlerReturnsNotFound(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RegistersAndServesMetrics(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/healthz", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedback_intel_api_requests_total")
}
