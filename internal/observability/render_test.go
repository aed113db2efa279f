package observability

// Renderer Tests
//
// Verifies the Prometheus text exposition: deterministic sorted output,
// cumulative bucket lines with a count-derived +Inf, label escaping, and
// the trimmed fixed-point float format.

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(cfg Config) *Manager {
	m := New(cfg, zerolog.Nop())
	frozen := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m.start = frozen
	m.now = func() time.Time { return frozen.Add(90 * time.Second) }
	return m
}

// TestRender_FormatFloat verifies trailing zero/point trimming and the
// non-finite fallback.
func TestRender_FormatFloat(t *testing.T) {
	cases := map[float64]string{
		1.0:    "1",
		1.5:    "1.5",
		0.05:   "0.05",
		2500:   "2500",
		42.125: "42.125",
		0:      "0",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatFloat(in), "formatFloat(%v)", in)
	}

	assert.Equal(t, "0", formatFloat(math.NaN()))
	assert.Equal(t, "0", formatFloat(math.Inf(1)))
}

// TestRender_Idempotent verifies two renders with no intervening writes are
// byte-identical.
func TestRender_Idempotent(t *testing.T) {
	m := testManager(DefaultConfig())
	m.RecordRequest("GET", "/api/vendors", 200, 42, DBStats{Calls: 2, TotalMS: 15, CacheHits: 1})
	m.RecordRequest("POST", "/api/contracts", 503, 120, DBStats{Calls: 1, TotalMS: 9, Errors: 1})

	first := m.RenderPrometheus()
	second := m.RenderPrometheus()
	assert.Equal(t, first, second)
}

// TestRender_DisabledReturnsEmpty verifies exposition off means empty
// string, not partial output.
func TestRender_DisabledReturnsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrometheusEnabled = false
	m := testManager(cfg)
	m.RecordRequest("GET", "/", 200, 5, DBStats{})

	assert.Empty(t, m.RenderPrometheus())

	// Prometheus is only effective when metrics collection is on.
	cfg = DefaultConfig()
	cfg.MetricsEnabled = false
	m = testManager(cfg)
	assert.Empty(t, m.RenderPrometheus())
}

// TestRender_HistogramShape verifies ascending cumulative buckets, the
// count-derived +Inf line, then _sum and _count.
func TestRender_HistogramShape(t *testing.T) {
	m := testManager(DefaultConfig())
	m.RecordRequest("GET", "/api/vendors", 200, 42, DBStats{})
	m.RecordRequest("GET", "/api/vendors", 200, 7, DBStats{})
	// Above every configured bound: visible only in +Inf.
	m.RecordRequest("GET", "/api/vendors", 200, 99999, DBStats{})

	out := m.RenderPrometheus()
	prefix := `tvendor_http_request_duration_ms_bucket{method="GET",path="/api/vendors",le=`

	assert.Contains(t, out, prefix+`"5"} 0`)
	assert.Contains(t, out, prefix+`"10"} 1`)
	assert.Contains(t, out, prefix+`"50"} 2`)
	assert.Contains(t, out, prefix+`"10000"} 2`)
	assert.Contains(t, out, prefix+`"+Inf"} 3`)
	assert.Contains(t, out, `tvendor_http_request_duration_ms_sum{method="GET",path="/api/vendors"} 100048`)
	assert.Contains(t, out, `tvendor_http_request_duration_ms_count{method="GET",path="/api/vendors"} 3`)

	// Cumulative counts never decrease down the bucket list.
	last := -1
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "tvendor_http_request_duration_ms_bucket") {
			continue
		}
		n, err := strconv.Atoi(line[strings.LastIndexByte(line, ' ')+1:])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, last)
		last = n
	}
}

// TestRender_SortedSeries verifies label keys render in sorted order for
// diff-friendly scraping.
func TestRender_SortedSeries(t *testing.T) {
	m := testManager(DefaultConfig())
	m.RecordRequest("POST", "/b", 200, 1, DBStats{})
	m.RecordRequest("GET", "/b", 200, 1, DBStats{})
	m.RecordRequest("GET", "/a", 200, 1, DBStats{})

	out := m.RenderPrometheus()
	ia := strings.Index(out, `tvendor_http_requests_total{method="GET",path="/a"`)
	ib := strings.Index(out, `tvendor_http_requests_total{method="GET",path="/b"`)
	ic := strings.Index(out, `tvendor_http_requests_total{method="POST",path="/b"`)
	require.NotEqual(t, -1, ia)
	assert.Less(t, ia, ib)
	assert.Less(t, ib, ic)
}

// TestRender_LabelEscaping verifies a hostile path cannot break the
// exposition syntax.
func TestRender_LabelEscaping(t *testing.T) {
	m := testManager(DefaultConfig())
	m.RecordRequest("GET", `/a"b\c`, 200, 1, DBStats{})

	out := m.RenderPrometheus()
	assert.Contains(t, out, `path="/a\"b\\c"`)
	// Control characters are stripped before the value ever becomes a key.
	m.RecordRequest("GET", "/x\ny", 200, 1, DBStats{})
	out = m.RenderPrometheus()
	assert.Contains(t, out, `path="/xy"`)
	assert.NotContains(t, out, "\n\"} ")
}

// TestRender_AlertAndUptimeFamilies verifies alert gauges/counters and the
// uptime gauge are always present.
func TestRender_AlertAndUptimeFamilies(t *testing.T) {
	m := testManager(DefaultConfig())

	out := m.RenderPrometheus()
	assert.Contains(t, out, `tvendor_alert_active{alert="db_avg_ms"} 0`)
	assert.Contains(t, out, `tvendor_alert_active{alert="error_rate_pct"} 0`)
	assert.Contains(t, out, `tvendor_alert_active{alert="request_p95_ms"} 0`)
	assert.Contains(t, out, `tvendor_alert_breaches_total{alert="request_p95_ms"} 0`)
	assert.Contains(t, out, "tvendor_uptime_seconds 90\n")
	assert.Contains(t, out, "# TYPE tvendor_uptime_seconds gauge")
}
