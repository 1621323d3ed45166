package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter caps in-flight request processing with a weighted
// semaphore. Requests that cannot get a slot within the wait timeout are
// answered 503 so Telegram retries the delivery later.
type ConcurrencyLimiter struct {
	sem           *semaphore.Weighted
	maxConcurrent int64
	timeout       time.Duration
	waitTimeout   time.Duration

	activeCount  int64
	totalReqs    int64
	rejectedReqs int64
}

// NewConcurrencyLimiter creates a limiter allowing maxConcurrent in-flight
// requests. timeout bounds request execution; waiting for a slot is capped
// at the same value or 60s, whichever is smaller.
func NewConcurrencyLimiter(maxConcurrent int, timeout time.Duration) *ConcurrencyLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	waitTimeout := 60 * time.Second
	if timeout < waitTimeout {
		waitTimeout = timeout
	}
	return &ConcurrencyLimiter{
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		maxConcurrent: int64(maxConcurrent),
		timeout:       timeout,
		waitTimeout:   waitTimeout,
	}
}

// Limit wraps a handler with slot acquisition and an execution deadline.
func (cl *ConcurrencyLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&cl.totalReqs, 1)

		waitCtx, cancelWait := context.WithTimeout(r.Context(), cl.waitTimeout)
		defer cancelWait()

		acquireStart := time.Now()
		if err := cl.sem.Acquire(waitCtx, 1); err != nil {
			atomic.AddInt64(&cl.rejectedReqs, 1)
			slog.Warn("Concurrency limit: wait timeout",
				"duration", time.Since(acquireStart),
				"total_rejected", atomic.LoadInt64(&cl.rejectedReqs))
			http.Error(w, "Server busy", http.StatusServiceUnavailable)
			return
		}

		atomic.AddInt64(&cl.activeCount, 1)
		defer func() {
			cl.sem.Release(1)
			atomic.AddInt64(&cl.activeCount, -1)
		}()

		execCtx, cancelExec := context.WithTimeout(r.Context(), cl.timeout)
		defer cancelExec()

		next.ServeHTTP(w, r.WithContext(execCtx))
	}
}

// Stats returns current limiter statistics.
func (cl *ConcurrencyLimiter) Stats() (active, total, rejected int64) {
	return atomic.LoadInt64(&cl.activeCount),
		atomic.LoadInt64(&cl.totalReqs),
		atomic.LoadInt64(&cl.rejectedReqs)
}
