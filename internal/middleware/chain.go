// Package middleware holds the HTTP middleware chain for the webhook
// server: tracing, access logging, security headers, rate limiting and
// concurrency limiting.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// MiddlewareFunc wraps a bare http.HandlerFunc.
type MiddlewareFunc func(http.HandlerFunc) http.HandlerFunc

// Chain composes middlewares so the first argument is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// ChainFunc composes HandlerFunc middlewares, first argument outermost.
func ChainFunc(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.HandlerFunc) http.HandlerFunc {
		h := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}
