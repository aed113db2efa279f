// Package audit records the application's change audit trail.
//
// DESIGN: Trail appends structured events as JSONL (one JSON object per
// line) immediately after each event, so the trail is durable and tailable
// in real time. Writes happen on the request path after the response is
// sent; failures are logged, never surfaced to the caller.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config contains audit trail settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // JSONL file path
}

// Event is one recorded change-relevant request.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Actor     string    `json:"actor"` // client IP or authenticated principal
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
}

// Trail appends audit events to a JSONL file.
type Trail struct {
	cfg   Config
	mu    sync.Mutex
	count int
}

// NewTrail creates a trail, ensuring the target directory exists.
func NewTrail(cfg Config) (*Trail, error) {
	t := &Trail{cfg: cfg}
	if !cfg.Enabled || cfg.Path == "" {
		return t, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, err
	}
	return t, nil
}

// Record appends one event. Best-effort: a write failure is logged and
// swallowed so auditing can never fail a request.
func (t *Trail) Record(event Event) {
	if !t.cfg.Enabled || t.cfg.Path == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := appendJSONL(t.cfg.Path, event); err != nil {
		log.Error().Err(err).Str("path", t.cfg.Path).Msg("audit: failed to write event")
		return
	}
	t.count++
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// Close logs a session summary if anything was recorded.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.Enabled && t.count > 0 {
		log.Info().
			Str("path", t.cfg.Path).
			Int("events", t.count).
			Msg("audit: session complete")
	}
	return nil
}
