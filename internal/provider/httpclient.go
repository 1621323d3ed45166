package provider

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/http2"

	"vpsbot/internal/metrics"
	"vpsbot/internal/reliability"
)

// NewHTTPClient builds the shared outbound client. Every provider and
// notification call goes through one of these, so the timeout here is the
// hard ceiling on any single upstream operation.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// Keep long-lived h2 connections honest with transport-level pings.
	if h2, err := http2.ConfigureTransports(transport); err == nil {
		h2.ReadIdleTimeout = 30 * time.Second
		h2.PingTimeout = 15 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// apiClient is the request plumbing shared by the provider implementations:
// JSON encode/decode, header injection, circuit breaker, error
// classification and request metrics.
type apiClient struct {
	provider string
	baseURL  string
	httpc    *http.Client
	breaker  *reliability.CircuitBreaker
	headers  func() map[string]string
}

// doJSON issues a request and decodes a 200 response into out (when out is
// non-nil). Non-2xx statuses and transport failures come back as *Error.
func (a *apiClient) doJSON(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Provider: a.provider, Kind: KindNetwork, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return &Error{Provider: a.provider, Kind: KindNetwork, Err: err}
	}
	for k, v := range a.headers() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		resp, err := a.httpc.Do(req)
		if err != nil {
			return nil, transportError(a.provider, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Drain so the connection can be reused.
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, statusError(a.provider, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, transportError(a.provider, err)
		}
		return data, nil
	})
	if err != nil {
		if reliability.IsOpen(err) {
			err = &Error{Provider: a.provider, Kind: KindUpstream, Err: err}
		}
		metrics.ProviderRequests.WithLabelValues(a.provider, op, "error").Inc()
		slog.Warn("Provider API call failed",
			"provider", a.provider, "op", op, "error", err)
		return err
	}

	metrics.ProviderRequests.WithLabelValues(a.provider, op, "success").Inc()

	if out != nil {
		if err := json.Unmarshal(result.([]byte), out); err != nil {
			return &Error{Provider: a.provider, Kind: KindUpstream, Err: err}
		}
	}
	return nil
}
