// Package observability - alerts.go evaluates the rolling SLO alerts.
//
// DESIGN: One evaluation pass per recorded request, over a consistent
// snapshot of the pruned window, covering all three alert kinds together:
//   - request_p95_ms:  nearest-rank p95 of request latency
//   - error_rate_pct:  5xx percentage of window requests
//   - db_avg_ms:       mean database latency per request
//
// Hysteresis with a cooldown gate keeps a sustained breach from re-logging
// on every request; recovery always logs immediately. A minimum sample floor
// suppresses statistically meaningless alerts right after startup or in a
// quiet window.
package observability

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// alertState is the hysteresis state of one alert kind.
type alertState struct {
	breached    bool
	breachCount int64 // lifetime loggable breach events, monotonic
	lastLogAt   time.Time
}

// alertEvaluator owns the per-kind states. Callers hold the Manager mutex.
type alertEvaluator struct {
	minRequests int
	cooldown    time.Duration
	thresholds  map[AlertKind]float64
	log         zerolog.Logger
	states      map[AlertKind]*alertState
}

func newAlertEvaluator(cfg Config, log zerolog.Logger) *alertEvaluator {
	e := &alertEvaluator{
		minRequests: cfg.AlertMinRequests,
		cooldown:    cfg.AlertCooldown,
		thresholds: map[AlertKind]float64{
			AlertRequestP95: cfg.RequestP95ThresholdMS,
			AlertErrorRate:  cfg.ErrorRateThresholdPct,
			AlertDBAvg:      cfg.DBAvgThresholdMS,
		},
		log:    log,
		states: make(map[AlertKind]*alertState, len(alertKinds)),
	}
	for _, kind := range alertKinds {
		e.states[kind] = &alertState{}
	}
	return e
}

// evaluate runs one pass over the pruned window samples.
func (e *alertEvaluator) evaluate(now time.Time, samples []windowSample) {
	if len(samples) < e.minRequests {
		// Too few samples to mean anything: resolve everything, logging a
		// recovery for any alert that was active.
		for _, kind := range alertKinds {
			e.transition(now, kind, 0, false)
		}
		return
	}

	n := len(samples)
	durations := make([]float64, n)
	errors := 0
	dbSum := 0.0
	for i, s := range samples {
		durations[i] = s.durationMS
		if s.isError {
			errors++
		}
		dbSum += s.dbMS
	}

	observed := map[AlertKind]float64{
		AlertRequestP95: percentileNearestRank(durations, 0.95),
		AlertErrorRate:  100 * float64(errors) / float64(n),
		AlertDBAvg:      dbSum / float64(n),
	}

	for _, kind := range alertKinds {
		threshold := e.thresholds[kind]
		// Threshold <= 0 disables the kind; the observed value still flows
		// through for visibility in logs.
		breached := threshold > 0 && observed[kind] > threshold
		e.transition(now, kind, observed[kind], breached)
	}
}

// transition applies hysteresis and cooldown-gated logging for one kind.
func (e *alertEvaluator) transition(now time.Time, kind AlertKind, observed float64, breached bool) {
	st := e.states[kind]
	switch {
	case breached && (!st.breached || now.Sub(st.lastLogAt) >= e.cooldown):
		st.breachCount++
		st.lastLogAt = now
		e.log.Warn().
			Str("alert", string(kind)).
			Float64("observed", observed).
			Float64("threshold", e.thresholds[kind]).
			Int64("breaches", st.breachCount).
			Msg("alert threshold breached")
	case !breached && st.breached:
		// Recovery logs immediately; cooldown only gates breach logs.
		e.log.Info().
			Str("alert", string(kind)).
			Float64("observed", observed).
			Msg("alert recovered")
	}
	st.breached = breached
}

// active reports whether kind is currently breached.
func (e *alertEvaluator) active(kind AlertKind) bool {
	return e.states[kind].breached
}

// breaches reports the lifetime breach-event count for kind.
func (e *alertEvaluator) breaches(kind AlertKind) int64 {
	return e.states[kind].breachCount
}

// percentileNearestRank returns the p-quantile of values using the
// nearest-rank method (index ceil(p*n)-1 of the sorted values, clamped),
// not interpolation. values is not modified.
func percentileNearestRank(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
