// Package secrets abstracts the secret storage the bot reads its
// credentials, token and ACL document from. Values are opaque strings
// addressed by path; absence is a normal result, not an error.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"golang.org/x/sync/singleflight"
)

// Provider fetches a secret value by path. The decrypt flag is honored by
// backends that distinguish encrypted values; others ignore it.
type Provider interface {
	Get(ctx context.Context, path string, decrypt bool) (string, bool, error)
}

// Cached wraps a Provider with a process-lifetime value cache. Population
// is singleflight-guarded so a cold start issues at most one fetch per
// path; after that the cache is read-only.
type Cached struct {
	inner Provider

	mu     sync.RWMutex
	values map[string]string
	sf     singleflight.Group
}

// NewCached wraps the given provider with caching.
func NewCached(inner Provider) *Cached {
	return &Cached{
		inner:  inner,
		values: make(map[string]string),
	}
}

func (c *Cached) Get(ctx context.Context, path string, decrypt bool) (string, bool, error) {
	c.mu.RLock()
	v, ok := c.values[path]
	c.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	type result struct {
		value string
		found bool
	}
	v2, err, _ := c.sf.Do(path, func() (interface{}, error) {
		value, found, err := c.inner.Get(ctx, path, decrypt)
		if err != nil {
			return nil, err
		}
		if found {
			c.mu.Lock()
			c.values[path] = value
			c.mu.Unlock()
		}
		return result{value: value, found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	r := v2.(result)
	return r.value, r.found, nil
}

// EnvProvider reads secrets from environment variables. The path is mangled
// into a variable name: leading slash stripped, separators replaced with
// underscores, upper-cased. Useful for local development.
type EnvProvider struct{}

func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

func (p *EnvProvider) Get(_ context.Context, path string, _ bool) (string, bool, error) {
	key := envKey(path)
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func envKey(path string) string {
	key := strings.Trim(path, "/")
	key = strings.NewReplacer("/", "_", "-", "_").Replace(key)
	return strings.ToUpper(key)
}

// Static is an in-memory provider for tests.
type Static map[string]string

func (s Static) Get(_ context.Context, path string, _ bool) (string, bool, error) {
	v, ok := s[path]
	return v, ok, nil
}

// Credentials fetches and decodes the per-provider credential bundle stored
// as JSON under prefix+name. An absent bundle yields an empty map; a
// malformed one is a configuration error.
func Credentials(ctx context.Context, p Provider, prefix, name string) (map[string]string, error) {
	path := prefix + name
	raw, found, err := p.Get(ctx, path, true)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials for %s: %w", name, err)
	}
	if !found {
		slog.Warn("No credentials found for provider", "provider", name, "path", path)
		return map[string]string{}, nil
	}

	creds := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON for %s: %w", name, err)
	}
	return creds, nil
}
