package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"
)

// Header names used for request correlation.
const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"
)

type traceIDKey struct{}

// GenerateTraceID returns a random 32-character hex trace id.
func GenerateTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Degrade to a time-derived id rather than failing the request.
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000")))
	}
	return hex.EncodeToString(b[:])
}

// WithTraceID returns a context carrying the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// GetTraceID extracts the trace id from a context, "" when absent.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// LogWithTrace returns a logger annotated with the context's trace id.
func LogWithTrace(ctx context.Context) *slog.Logger {
	if id := GetTraceID(ctx); id != "" {
		return slog.Default().With("trace_id", id)
	}
	return slog.Default()
}

// TraceMiddleware assigns every request a trace id, honoring one supplied
// by the caller, and echoes it on the response.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" {
			traceID = r.Header.Get(RequestIDHeader)
		}
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		w.Header().Set(TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), traceID)))
	})
}

// TraceFunc is TraceMiddleware for a bare HandlerFunc.
func TraceFunc(next http.HandlerFunc) http.Handler {
	return TraceMiddleware(next)
}

// TracedResponseWriter records the status code and body size a handler
// produced, for access logging.
type TracedResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	BytesWritten int
}

func NewTracedResponseWriter(w http.ResponseWriter) *TracedResponseWriter {
	return &TracedResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (w *TracedResponseWriter) WriteHeader(code int) {
	w.StatusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *TracedResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.BytesWritten += n
	return n, err
}

func (w *TracedResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingMiddleware emits one structured access log line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traced := NewTracedResponseWriter(w)

		next.ServeHTTP(traced, r)

		LogWithTrace(r.Context()).Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", traced.StatusCode,
			"bytes", traced.BytesWritten,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
