// Package observability - types.go defines shared types and configuration.
//
// DESIGN: These types are used by both server/ and observability/ packages.
// Config carries yaml tags so the root config can embed it directly; defaults
// and bounds are applied once by Normalize() at load time, never re-checked on
// the hot path.
//
// TYPES:
//   - AlertKind:      Identifies one monitored SLO signal
//   - DBStats:        Per-request downstream (database) call summary
//   - Config types:   Config, UDPConfig
//   - HealthSnapshot: Point-in-time state for the health endpoint
package observability

import "time"

// =============================================================================
// ALERT TYPES
// =============================================================================

// AlertKind identifies one monitored SLO signal.
type AlertKind string

const (
	// AlertRequestP95 fires on the 95th-percentile request latency.
	AlertRequestP95 AlertKind = "request_p95_ms"
	// AlertErrorRate fires on the 5xx error rate percentage.
	AlertErrorRate AlertKind = "error_rate_pct"
	// AlertDBAvg fires on the average database call latency per request.
	AlertDBAvg AlertKind = "db_avg_ms"
)

// alertKinds lists every kind in evaluation order.
var alertKinds = []AlertKind{AlertRequestP95, AlertErrorRate, AlertDBAvg}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DBStats summarizes the downstream database activity of one request.
// The repository layer aggregates these per request; the middleware hands
// them to RecordRequest as already-summarized scalars.
type DBStats struct {
	Calls     int
	TotalMS   float64
	CacheHits int
	Errors    int
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config contains all observability settings.
type Config struct {
	MetricsEnabled    bool   `yaml:"metrics_enabled"`    // Master switch for in-memory metrics
	PrometheusEnabled bool   `yaml:"prometheus_enabled"` // Expose the text exposition endpoint
	PrometheusPath    string `yaml:"prometheus_path"`    // Scrape endpoint path

	AlertsEnabled    bool          `yaml:"alerts_enabled"`     // Master switch for rolling alerts
	AlertWindow      time.Duration `yaml:"alert_window"`       // Trailing evaluation window
	AlertMinRequests int           `yaml:"alert_min_requests"` // Sample floor before evaluating
	AlertCooldown    time.Duration `yaml:"alert_cooldown"`     // Min gap between breach logs

	// Thresholds; <= 0 disables the individual alert.
	RequestP95ThresholdMS float64 `yaml:"request_p95_threshold_ms"`
	ErrorRateThresholdPct float64 `yaml:"error_rate_threshold_pct"`
	DBAvgThresholdMS      float64 `yaml:"db_avg_threshold_ms"`

	UDP UDPConfig `yaml:"udp"` // Optional statsd forwarding
}

// UDPConfig contains the statsd-style UDP sink settings.
type UDPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Namespace string `yaml:"namespace"` // Metric name prefix
}

// Default and minimum bounds for config normalization.
const (
	DefaultPrometheusPath   = "/api/metrics"
	defaultAlertWindow      = 300 * time.Second
	minAlertWindow          = 10 * time.Second
	defaultAlertMinRequests = 20
	defaultAlertCooldown    = 300 * time.Second
	minAlertCooldown        = 10 * time.Second
	defaultUDPHost          = "127.0.0.1"
	defaultUDPPort          = 8125
	defaultUDPNamespace     = "tvendor"
)

// DefaultConfig returns the configuration used when the observability section
// is absent: metrics, Prometheus and alerting on, every threshold disabled,
// UDP forwarding off.
func DefaultConfig() Config {
	cfg := Config{
		MetricsEnabled:    true,
		PrometheusEnabled: true,
		AlertsEnabled:     true,
	}
	cfg.Normalize()
	return cfg
}

// Normalize applies defaults and clamps out-of-range values to their
// documented bounds. Out-of-range settings are not startup failures; this is
// a telemetry component and must come up with whatever it was given.
func (c *Config) Normalize() {
	if c.PrometheusPath == "" {
		c.PrometheusPath = DefaultPrometheusPath
	}
	if c.PrometheusPath[0] != '/' {
		c.PrometheusPath = "/" + c.PrometheusPath
	}

	if c.AlertWindow == 0 {
		c.AlertWindow = defaultAlertWindow
	}
	if c.AlertWindow < minAlertWindow {
		c.AlertWindow = minAlertWindow
	}
	if c.AlertMinRequests == 0 {
		c.AlertMinRequests = defaultAlertMinRequests
	}
	if c.AlertMinRequests < 1 {
		c.AlertMinRequests = 1
	}
	if c.AlertCooldown == 0 {
		c.AlertCooldown = defaultAlertCooldown
	}
	if c.AlertCooldown < minAlertCooldown {
		c.AlertCooldown = minAlertCooldown
	}

	if c.RequestP95ThresholdMS < 0 {
		c.RequestP95ThresholdMS = 0
	}
	if c.ErrorRateThresholdPct < 0 {
		c.ErrorRateThresholdPct = 0
	}
	if c.DBAvgThresholdMS < 0 {
		c.DBAvgThresholdMS = 0
	}

	if c.UDP.Host == "" {
		c.UDP.Host = defaultUDPHost
	}
	if c.UDP.Port < 1 || c.UDP.Port > 65535 {
		c.UDP.Port = defaultUDPPort
	}
	c.UDP.Namespace = sanitizeMetricName(c.UDP.Namespace)
	if c.UDP.Namespace == metricNameFallback {
		c.UDP.Namespace = defaultUDPNamespace
	}
}

// =============================================================================
// HEALTH TYPES
// =============================================================================

// HealthSnapshot is the point-in-time state served by the health endpoint.
type HealthSnapshot struct {
	MetricsEnabled    bool  `json:"metrics_enabled"`
	PrometheusEnabled bool  `json:"prometheus_enabled"`
	AlertsEnabled     bool  `json:"alerts_enabled"`
	UDPSinkEnabled    bool  `json:"udp_sink_enabled"`
	AlertWindowSec    int64 `json:"alert_window_sec"`

	ActiveAlerts []string         `json:"active_alerts"` // sorted kind names
	BreachCounts map[string]int64 `json:"breach_counts"` // lifetime, per kind
	WindowSize   int              `json:"window_size"`
	UptimeSec    float64          `json:"uptime_sec"`
}
