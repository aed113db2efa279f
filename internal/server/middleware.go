// HTTP middleware: panic recovery and per-request instrumentation.
//
// DESIGN: Middleware chain (applied in order):
//  1. panicRecovery: Catch panics, return 500, log stack trace
//  2. instrument:    Request ID, timing, DB stats collection, one
//     RecordRequest per completed request, audit for mutating methods
package server

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/tvendorhq/tvendor/internal/audit"
	"github.com/tvendorhq/tvendor/internal/logging"
)

// HeaderRequestID carries the request ID to and from clients.
const HeaderRequestID = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing it.
func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush implements http.Flusher to support streaming responses.
func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// instrument times each request, collects its DB stats and hands the result
// to the observability manager exactly once, after the response is written.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := logging.WithRequestIDContext(r.Context(), requestID)
		ctx, dbRec := WithDBRecorder(ctx)
		r = r.WithContext(ctx)

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		s.obs.RecordRequest(r.Method, r.URL.Path, wrapped.status,
			float64(elapsed)/float64(time.Millisecond), dbRec.Stats())

		if isMutating(r.Method) {
			s.trail.Record(audit.Event{
				Timestamp: time.Now().UTC(),
				RequestID: requestID,
				Actor:     clientIP(r),
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    wrapped.status,
			})
		}

		s.log.Info().
			Str("id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// panicRecovery recovers from handler panics and returns a 500 error.
func (s *Server) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error().
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// isMutating reports whether the method changes state and belongs in the
// audit trail.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// clientIP extracts the remote IP without the port.
func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
