package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateTraceID(t *testing.T) {
	id := GenerateTraceID()
	if len(id) != 32 {
		t.Errorf("len(id) = %d, want 32 hex characters", len(id))
	}
	if strings.Trim(id, "0123456789abcdef") != "" {
		t.Errorf("id = %q, want lowercase hex", id)
	}

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := GenerateTraceID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestTraceContext(t *testing.T) {
	cases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"nil context", nil, ""},
		{"no trace id", context.Background(), ""},
		{"round trip", WithTraceID(context.Background(), "abc-123"), "abc-123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetTraceID(tc.ctx); got != tc.want {
				t.Errorf("GetTraceID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	echo := func(t *testing.T, req *http.Request) (seen string, rec *httptest.ResponseRecorder) {
		t.Helper()
		rec = httptest.NewRecorder()
		TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetTraceID(r.Context())
		})).ServeHTTP(rec, req)
		return seen, rec
	}

	t.Run("assigns an id when none supplied", func(t *testing.T) {
		seen, rec := echo(t, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Error("handler saw no trace id in context")
		}
		if rec.Header().Get(TraceIDHeader) != seen {
			t.Errorf("response header = %q, want the context id %q",
				rec.Header().Get(TraceIDHeader), seen)
		}
	})

	t.Run("honors a caller-supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, "caller-id-1")

		seen, rec := echo(t, req)
		if seen != "caller-id-1" {
			t.Errorf("context id = %q, want caller-id-1", seen)
		}
		if rec.Header().Get(TraceIDHeader) != "caller-id-1" {
			t.Errorf("response header = %q, want caller-id-1", rec.Header().Get(TraceIDHeader))
		}
	})

	t.Run("falls back to the request id header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-id-2")

		if seen, _ := echo(t, req); seen != "req-id-2" {
			t.Errorf("context id = %q, want req-id-2", seen)
		}
	})
}

func TestTraceFunc(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	TraceFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("wrapped func ran without a trace id")
	}
}

func TestLogWithTrace(t *testing.T) {
	if LogWithTrace(context.Background()) == nil {
		t.Error("LogWithTrace() = nil without a trace id")
	}
	if LogWithTrace(WithTraceID(context.Background(), "id")) == nil {
		t.Error("LogWithTrace() = nil with a trace id")
	}
}

func TestTracedResponseWriter(t *testing.T) {
	t.Run("defaults to 200", func(t *testing.T) {
		traced := NewTracedResponseWriter(httptest.NewRecorder())
		if traced.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", traced.StatusCode, http.StatusOK)
		}
	})

	t.Run("records status and size", func(t *testing.T) {
		traced := NewTracedResponseWriter(httptest.NewRecorder())
		traced.WriteHeader(http.StatusBadRequest)
		traced.Write([]byte(`{"error":`))
		traced.Write([]byte(`"nope"}`))

		if traced.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want %d", traced.StatusCode, http.StatusBadRequest)
		}
		if traced.BytesWritten != 17 {
			t.Errorf("BytesWritten = %d, want 17", traced.BytesWritten)
		}
	})

	t.Run("flush tolerates a non-flusher", func(t *testing.T) {
		NewTracedResponseWriter(httptest.NewRecorder()).Flush()
	})
}

func TestLoggingMiddleware(t *testing.T) {
	handler := TraceMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("queued"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if rec.Body.String() != "queued" {
		t.Errorf("body = %q, logging wrapper must pass writes through", rec.Body.String())
	}
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-in")
				next.ServeHTTP(w, r)
				order = append(order, name+"-out")
			})
		}
	}

	Chain(tag("outer"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := "outer-in inner-in handler inner-out outer-out"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestChainFunc(t *testing.T) {
	var order []string
	tag := func(name string) MiddlewareFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	ChainFunc(tag("first"), tag("second"))(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := "first second handler"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}
