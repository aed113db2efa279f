package observability

// Metrics Store Tests
//
// Verifies the exactness guarantees of the in-memory store:
// - Counters equal the number of recorded increments, per label key
// - Histogram count/sum track every observation, including values above
//   every configured bound (which touch no finite bucket slot)
// - Bucket placement hits the first bound >= value, non-cumulatively

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_CounterExact verifies counters are exact and per-key.
func TestStore_CounterExact(t *testing.T) {
	s := newMetricsStore()
	a := LabelKey{Method: "GET", Path: "/api/vendors", Status: "2xx"}
	b := LabelKey{Method: "GET", Path: "/api/vendors", Status: "5xx"}

	for i := 0; i < 7; i++ {
		s.addCounter(metricRequestsTotal, a, 1)
	}
	s.addCounter(metricRequestsTotal, b, 1)

	assert.Equal(t, int64(7), s.counters[metricRequestsTotal][a])
	assert.Equal(t, int64(1), s.counters[metricRequestsTotal][b])
}

// TestStore_CounterAmount verifies the store accepts arbitrary amounts;
// only the UDP forwarding path filters non-positive values.
func TestStore_CounterAmount(t *testing.T) {
	s := newMetricsStore()
	key := LabelKey{Method: "GET", Path: "/"}

	s.addCounter(metricDBCalls, key, 3)
	s.addCounter(metricDBCalls, key, 2)
	assert.Equal(t, int64(5), s.counters[metricDBCalls][key])
}

// TestStore_HistogramCountAndSum verifies count==N and sum==sum of values.
func TestStore_HistogramCountAndSum(t *testing.T) {
	s := newMetricsStore()
	key := LabelKey{Method: "GET", Path: "/api/vendors"}

	values := []float64{3, 42, 110, 9000, 50000}
	total := 0.0
	for _, v := range values {
		s.observe(metricRequestDuration, key, v, requestDurationBounds)
		total += v
	}

	h := s.histograms[metricRequestDuration][key]
	require.NotNil(t, h)
	assert.Equal(t, int64(len(values)), h.count)
	assert.InDelta(t, total, h.sum, 1e-9)

	// The 50000ms observation exceeds every bound: finite buckets hold one
	// fewer than count, and the gap surfaces only via +Inf at render time.
	finite := int64(0)
	for _, c := range h.buckets {
		finite += c
	}
	assert.Equal(t, h.count-1, finite)
}

// TestStore_BucketPlacement verifies the first bound >= value takes the
// single non-cumulative increment.
func TestStore_BucketPlacement(t *testing.T) {
	s := newMetricsStore()
	key := LabelKey{Method: "GET", Path: "/api/vendors"}

	s.observe(metricRequestDuration, key, 42.0, requestDurationBounds)

	h := s.histograms[metricRequestDuration][key]
	for i, bound := range h.bounds {
		if bound == 50.0 {
			assert.Equal(t, int64(1), h.buckets[i], "42ms belongs in the 50ms bucket")
		} else {
			assert.Zero(t, h.buckets[i], "no other bucket may be touched")
		}
	}
}

// TestStore_BucketBoundaryInclusive verifies a value equal to a bound lands
// in that bound's bucket (le semantics).
func TestStore_BucketBoundaryInclusive(t *testing.T) {
	s := newMetricsStore()
	key := LabelKey{Method: "GET", Path: "/"}

	s.observe(metricRequestDuration, key, 25.0, requestDurationBounds)

	h := s.histograms[metricRequestDuration][key]
	assert.Equal(t, int64(1), h.buckets[2], "bounds are {5,10,25,...}; 25 is <= 25")
}

// TestStore_LazyHistogramCreation verifies per-key histograms appear on
// first observation with one slot per configured bound.
func TestStore_LazyHistogramCreation(t *testing.T) {
	s := newMetricsStore()
	key := LabelKey{Method: "POST", Path: "/api/contracts"}

	require.Empty(t, s.histograms)
	s.observe(metricDBCallDuration, key, 1.5, dbCallDurationBounds)

	h := s.histograms[metricDBCallDuration][key]
	require.NotNil(t, h)
	assert.Len(t, h.buckets, len(dbCallDurationBounds))
}
