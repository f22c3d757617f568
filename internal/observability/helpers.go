package observability

import "time"

// Every method below is nil-receiver-safe so callers can pass a nil
// *Metrics (metrics disabled) without branching at every call site.

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.APIInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.APIInflight.Dec()
}

func (m *Metrics) ObserveJobEnqueued(queue string) {
	if m == nil {
		return
	}
	m.JobsEnqueuedTotal.WithLabelValues(queue).Inc()
}

func (m *Metrics) ObserveJobProcessed(queue, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessedTotal.WithLabelValues(queue, outcome).Inc()
	m.JobDuration.WithLabelValues(queue).Observe(d.Seconds())
}

func (m *Metrics) SetQueueDepth(queue string, depth float64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(depth)
}

func (m *Metrics) ObserveModelCall(operation, version string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ModelCallDuration.WithLabelValues(operation, version).Observe(d.Seconds())
	if err != nil {
		m.ModelCallErrors.WithLabelValues(operation, version).Inc()
	}
}

func (m *Metrics) ObserveVectorStoreCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.VectorStoreCallDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.VectorStoreCallErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) ObserveCache(endpoint string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(endpoint).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) IncTopicSpawned() {
	if m == nil {
		return
	}
	m.TopicsSpawnedTotal.Inc()
}

func (m *Metrics) SetUnassignedPoolSize(n float64) {
	if m == nil {
		return
	}
	m.UnassignedPoolSize.Set(n)
}
