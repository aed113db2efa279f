// Per-request database call accounting.
//
// DESIGN: The repository layer reports each database call through the
// DBRecorder carried in the request context; the instrumentation middleware
// drains the totals into RecordRequest once the response is written. This is
// the concrete form of the "already-summarized downstream scalars" contract
// between the data layer and observability.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/tvendorhq/tvendor/internal/observability"
)

type dbRecorderKey struct{}

// DBRecorder accumulates one request's database call summary.
type DBRecorder struct {
	mu        sync.Mutex
	calls     int
	totalMS   float64
	cacheHits int
	errors    int
}

// WithDBRecorder attaches a fresh recorder to the context, returning both.
func WithDBRecorder(ctx context.Context) (context.Context, *DBRecorder) {
	rec := &DBRecorder{}
	return context.WithValue(ctx, dbRecorderKey{}, rec), rec
}

// DBRecorderFromContext returns the request's recorder, or nil if the
// request did not pass through the instrumentation middleware.
func DBRecorderFromContext(ctx context.Context) *DBRecorder {
	rec, _ := ctx.Value(dbRecorderKey{}).(*DBRecorder)
	return rec
}

// Record registers one database call. Safe to call on a nil recorder so
// repositories never need to care whether instrumentation is present.
func (r *DBRecorder) Record(d time.Duration, cacheHit bool, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.totalMS += float64(d) / float64(time.Millisecond)
	if cacheHit {
		r.cacheHits++
	}
	if err != nil {
		r.errors++
	}
}

// Stats returns the accumulated summary.
func (r *DBRecorder) Stats() observability.DBStats {
	if r == nil {
		return observability.DBStats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return observability.DBStats{
		Calls:     r.calls,
		TotalMS:   r.totalMS,
		CacheHits: r.cacheHits,
		Errors:    r.errors,
	}
}
