// Package observability - store.go holds the in-memory counters and
// latency histograms.
//
// DESIGN: Counters only grow and histograms never evict; a process restart is
// the only reset. Bucket increments are stored non-cumulatively (one slot per
// configured bound); cumulative summation and the +Inf bucket happen at
// render time, with the observation count as the authoritative total so
// values above every bound are never double-counted.
package observability

// Fixed histogram bucket upper bounds in milliseconds. These are system
// constants, not per-call configuration.
var (
	requestDurationBounds = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	dbCallDurationBounds  = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}
)

// Metric family names as rendered in the exposition.
const (
	metricRequestsTotal   = "tvendor_http_requests_total"
	metricRequestErrors   = "tvendor_http_request_errors_total"
	metricDBCalls         = "tvendor_db_calls_total"
	metricDBCacheHits     = "tvendor_db_cache_hits_total"
	metricDBErrors        = "tvendor_db_errors_total"
	metricRequestDuration = "tvendor_http_request_duration_ms"
	metricDBCallDuration  = "tvendor_db_call_duration_ms"
	metricAlertActive     = "tvendor_alert_active"
	metricAlertBreaches   = "tvendor_alert_breaches_total"
	metricUptime          = "tvendor_uptime_seconds"
)

// histogram is one per-key latency distribution.
type histogram struct {
	bounds  []float64 // ascending upper bounds, shared constant slice
	buckets []int64   // non-cumulative count per bound
	count   int64
	sum     float64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, buckets: make([]int64, len(bounds))}
}

// observe records one value: count and sum always advance; the first bound
// >= value takes the bucket increment. A value above every bound touches no
// slot and surfaces only through the rendered +Inf bucket.
func (h *histogram) observe(v float64) {
	h.count++
	h.sum += v
	for i, bound := range h.bounds {
		if v <= bound {
			h.buckets[i]++
			return
		}
	}
}

// clone returns an independent copy for lock-free rendering.
func (h *histogram) clone() *histogram {
	c := &histogram{bounds: h.bounds, buckets: make([]int64, len(h.buckets)), count: h.count, sum: h.sum}
	copy(c.buckets, h.buckets)
	return c
}

// metricsStore maps family name -> label key -> counter/histogram. Callers
// hold the Manager mutex; the store itself is not safe for concurrent use.
type metricsStore struct {
	counters   map[string]map[LabelKey]int64
	histograms map[string]map[LabelKey]*histogram
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		counters:   make(map[string]map[LabelKey]int64),
		histograms: make(map[string]map[LabelKey]*histogram),
	}
}

// addCounter adds amount to the family's counter for key, creating the
// family and series lazily. The store accepts any amount; callers that must
// stay non-negative (UDP forwarding) filter before calling.
func (s *metricsStore) addCounter(family string, key LabelKey, amount int64) {
	series, ok := s.counters[family]
	if !ok {
		series = make(map[LabelKey]int64)
		s.counters[family] = series
	}
	series[key] += amount
}

// observe records one histogram observation, creating the per-key histogram
// lazily with one slot per configured bound.
func (s *metricsStore) observe(family string, key LabelKey, v float64, bounds []float64) {
	series, ok := s.histograms[family]
	if !ok {
		series = make(map[LabelKey]*histogram)
		s.histograms[family] = series
	}
	h, ok := series[key]
	if !ok {
		h = newHistogram(bounds)
		series[key] = h
	}
	h.observe(v)
}
