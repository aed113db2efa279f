// Package observability provides the in-process metrics, alerting and
// exposition component of the tvendor server.
//
// DESIGN: Manager is the single facade over the metrics store, the rolling
// alert window/evaluator and the optional UDP stats sink. It is constructed
// explicitly by the composition root and threaded into the middleware; there
// is no hidden global. One mutex guards all mutable state; nothing blocks or
// performs I/O while holding it. The three public entry points are
// RecordRequest (ingestion), RenderPrometheus and HealthSnapshot (reads).
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager owns all observability state for the process.
type Manager struct {
	cfg   Config
	log   zerolog.Logger
	start time.Time
	now   func() time.Time // swappable for tests

	mu     sync.Mutex
	store  *metricsStore
	window *alertWindow
	alerts *alertEvaluator

	// The sink runs outside the main lock; it has its own socket mutex.
	sink *statsSink
}

// New builds a Manager from normalized configuration. The caller owns the
// instance for the process lifetime and passes it to whatever records or
// scrapes; configuration is fixed after construction.
func New(cfg Config, log zerolog.Logger) *Manager {
	cfg.Normalize()
	return &Manager{
		cfg:    cfg,
		log:    log,
		start:  time.Now(),
		now:    time.Now,
		store:  newMetricsStore(),
		window: newAlertWindow(),
		alerts: newAlertEvaluator(cfg, log),
		sink:   newStatsSink(cfg.UDP, log),
	}
}

// Config returns the normalized configuration the Manager runs with.
func (m *Manager) Config() Config {
	return m.cfg
}

// PrometheusEnabled reports whether the scrape endpoint should be served.
// Exposition is only effective when metrics collection itself is on.
func (m *Manager) PrometheusEnabled() bool {
	return m.cfg.MetricsEnabled && m.cfg.PrometheusEnabled
}

// RecordRequest ingests one completed HTTP request. It sits on the hot
// request path and never panics out or blocks on I/O: malformed inputs are
// clamped, and UDP forwarding happens after the lock is released,
// best-effort. Call it exactly once per completed request.
func (m *Manager) RecordRequest(method, path string, status int, elapsedMS float64, db DBStats) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("record request panic suppressed")
		}
	}()

	elapsedMS = clampFloat(elapsedMS)
	db.Calls = clampInt(db.Calls)
	db.TotalMS = clampFloat(db.TotalMS)
	db.CacheHits = clampInt(db.CacheHits)
	db.Errors = clampInt(db.Errors)

	methodLabel := normalizeMethod(method)
	pathLabel := normalizePath(path)
	routeKey := LabelKey{Method: methodLabel, Path: pathLabel}
	requestKey := LabelKey{Method: methodLabel, Path: pathLabel, Status: statusClass(status)}
	isError := status >= 500

	now := m.now()

	// Deferred unlock in a scoped func: the recover boundary above must
	// never swallow a panic while the lock is still held.
	func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.cfg.MetricsEnabled {
			m.store.addCounter(metricRequestsTotal, requestKey, 1)
			m.store.observe(metricRequestDuration, routeKey, elapsedMS, requestDurationBounds)
			if isError {
				m.store.addCounter(metricRequestErrors, routeKey, 1)
			}
			if db.Calls > 0 {
				m.store.addCounter(metricDBCalls, routeKey, int64(db.Calls))
				if db.TotalMS > 0 {
					m.store.observe(metricDBCallDuration, routeKey, db.TotalMS, dbCallDurationBounds)
				}
			}
			if db.CacheHits > 0 {
				m.store.addCounter(metricDBCacheHits, routeKey, int64(db.CacheHits))
			}
			if db.Errors > 0 {
				m.store.addCounter(metricDBErrors, routeKey, int64(db.Errors))
			}
		}
		if m.cfg.AlertsEnabled {
			m.window.append(windowSample{at: now, durationMS: elapsedMS, isError: isError, dbMS: db.TotalMS})
			m.window.evictBefore(now.Add(-m.cfg.AlertWindow))
			m.alerts.evaluate(now, m.window.live())
		}
	}()

	// Secondary forwarding is intentionally outside the lock and lossy
	// relative to the authoritative in-memory store.
	if m.cfg.MetricsEnabled {
		m.forward(methodLabel, pathLabel, isError, elapsedMS, db)
	}
}

// forward mirrors the recorded signals to the UDP sink, flattened into
// statsd metric names per route.
func (m *Manager) forward(method, path string, isError bool, elapsedMS float64, db DBStats) {
	route := method + "." + path
	m.sink.Count("http.requests."+route, 1)
	m.sink.Timing("http.request_ms."+route, elapsedMS)
	if isError {
		m.sink.Count("http.errors."+route, 1)
	}
	if db.Calls > 0 {
		m.sink.Count("db.calls."+route, int64(db.Calls))
		if db.TotalMS > 0 {
			m.sink.Timing("db.call_ms."+route, db.TotalMS)
		}
	}
	m.sink.Count("db.cache_hits."+route, int64(db.CacheHits))
	m.sink.Count("db.errors."+route, int64(db.Errors))
}

// RenderPrometheus returns the text exposition of the current state, or the
// empty string when exposition is disabled. The lock is held only to copy.
func (m *Manager) RenderPrometheus() string {
	if !m.PrometheusEnabled() {
		return ""
	}
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	return renderPrometheus(snap)
}

// snapshotLocked deep-copies the renderable state. Caller holds m.mu.
func (m *Manager) snapshotLocked() renderSnapshot {
	snap := renderSnapshot{
		counters:   make(map[string]map[LabelKey]int64, len(m.store.counters)),
		histograms: make(map[string]map[LabelKey]*histogram, len(m.store.histograms)),
		alerts:     make(map[AlertKind]alertSnapshot, len(alertKinds)),
		uptimeSec:  m.now().Sub(m.start).Seconds(),
	}
	for family, series := range m.store.counters {
		cp := make(map[LabelKey]int64, len(series))
		for k, v := range series {
			cp[k] = v
		}
		snap.counters[family] = cp
	}
	for family, series := range m.store.histograms {
		cp := make(map[LabelKey]*histogram, len(series))
		for k, h := range series {
			cp[k] = h.clone()
		}
		snap.histograms[family] = cp
	}
	for _, kind := range alertKinds {
		snap.alerts[kind] = alertSnapshot{
			active:      m.alerts.active(kind),
			breachCount: m.alerts.breaches(kind),
		}
	}
	return snap
}

// HealthSnapshot returns the point-in-time state for the health endpoint:
// configuration flags, currently active alerts (sorted), lifetime breach
// counts, window size and uptime.
func (m *Manager) HealthSnapshot() HealthSnapshot {
	snap := HealthSnapshot{
		MetricsEnabled:    m.cfg.MetricsEnabled,
		PrometheusEnabled: m.PrometheusEnabled(),
		AlertsEnabled:     m.cfg.AlertsEnabled,
		UDPSinkEnabled:    m.cfg.UDP.Enabled,
		AlertWindowSec:    int64(m.cfg.AlertWindow / time.Second),
		ActiveAlerts:      []string{},
		BreachCounts:      make(map[string]int64, len(alertKinds)),
		UptimeSec:         m.now().Sub(m.start).Seconds(),
	}

	m.mu.Lock()
	for _, kind := range alertKinds {
		if m.alerts.active(kind) {
			snap.ActiveAlerts = append(snap.ActiveAlerts, string(kind))
		}
		snap.BreachCounts[string(kind)] = m.alerts.breaches(kind)
	}
	snap.WindowSize = m.window.size()
	m.mu.Unlock()

	sort.Strings(snap.ActiveAlerts)
	return snap
}

// Close releases the UDP socket if one was opened.
func (m *Manager) Close() error {
	return m.sink.Close()
}

func clampFloat(v float64) float64 {
	if !(v > 0) { // catches negatives and NaN
		return 0
	}
	return v
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
