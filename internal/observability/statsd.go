// Package observability - statsd.go forwards counters and timings to an
// external collector over UDP.
//
// DESIGN: Best-effort fire-and-forget. The sink never blocks the request
// path and never surfaces an error to its caller: send failures are
// swallowed, with a warning logged at most once per minute so a dead
// collector cannot flood the application log. The socket is created lazily
// behind its own small mutex and reused across sends.
package observability

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	metricNameFallback = "unknown"
	sinkWarnInterval   = 60 * time.Second
)

// statsSink writes statsd lines (<name>:<value>|c or |ms) as single UDP
// datagrams. The zero-value-disabled sink turns every call into a no-op.
type statsSink struct {
	enabled   bool
	addr      string
	namespace string
	log       zerolog.Logger

	mu       sync.Mutex
	conn     net.Conn
	lastWarn time.Time
}

func newStatsSink(cfg UDPConfig, log zerolog.Logger) *statsSink {
	return &statsSink{
		enabled:   cfg.Enabled,
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		namespace: cfg.Namespace,
		log:       log,
	}
}

// Count forwards a counter increment. Only positive amounts go on the wire.
func (s *statsSink) Count(name string, amount int64) {
	if !s.enabled || amount <= 0 {
		return
	}
	s.send(fmt.Sprintf("%s.%s:%d|c", s.namespace, sanitizeMetricName(name), amount))
}

// Timing forwards a duration in milliseconds, 2 decimal places. Negative or
// non-finite values are dropped.
func (s *statsSink) Timing(name string, ms float64) {
	if !s.enabled || ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return
	}
	s.send(fmt.Sprintf("%s.%s:%.2f|ms", s.namespace, sanitizeMetricName(name), ms))
}

// send writes one datagram, swallowing any failure.
func (s *statsSink) send(line string) {
	conn, err := s.connection()
	if err != nil {
		s.warn(err)
		return
	}
	if _, err := conn.Write([]byte(line)); err != nil {
		s.warn(err)
	}
}

// connection lazily dials the collector and caches the socket. UDP writes on
// a connected socket do not block on the remote end.
func (s *statsSink) connection() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := net.Dial("udp", s.addr)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// warn logs a send failure at most once per sinkWarnInterval.
func (s *statsSink) warn(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastWarn) < sinkWarnInterval {
		return
	}
	s.lastWarn = now
	s.log.Warn().Err(err).Str("addr", s.addr).Msg("stats sink send failed")
}

// Close releases the socket if one was ever created.
func (s *statsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// sanitizeMetricName restricts a statsd metric name to [A-Za-z0-9_.-],
// replacing everything else with '_', trimming stray leading/trailing dots
// and underscores, and falling back to a fixed token when nothing is left.
func sanitizeMetricName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return metricNameFallback
	}
	return cleaned
}
