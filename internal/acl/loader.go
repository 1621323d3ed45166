package acl

import (
	"context"
	"log/slog"
	"sync"

	"vpsbot/internal/secrets"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the ACL document from secret storage once per process and
// serves the parsed snapshot afterwards. A missing or malformed document
// degrades to an empty (deny-all) configuration instead of failing the
// request.
type Loader struct {
	provider secrets.Provider
	path     string

	mu     sync.RWMutex
	cached *Config
	sf     singleflight.Group
}

// NewLoader creates a loader reading from the given secret path.
func NewLoader(provider secrets.Provider, path string) *Loader {
	return &Loader{provider: provider, path: path}
}

// Load returns the access-control snapshot, fetching it on first use.
func (l *Loader) Load(ctx context.Context) *Config {
	l.mu.RLock()
	c := l.cached
	l.mu.RUnlock()
	if c != nil {
		return c
	}

	v, _, _ := l.sf.Do("acl", func() (interface{}, error) {
		cfg := l.fetch(ctx)
		l.mu.Lock()
		l.cached = cfg
		l.mu.Unlock()
		return cfg, nil
	})
	return v.(*Config)
}

func (l *Loader) fetch(ctx context.Context) *Config {
	raw, found, err := l.provider.Get(ctx, l.path, true)
	if err != nil {
		slog.Error("Failed to fetch ACL config, denying all", "path", l.path, "error", err)
		return NewConfig()
	}
	if !found {
		slog.Warn("No ACL config found, denying all", "path", l.path)
		return NewConfig()
	}

	cfg, err := Parse([]byte(raw))
	if err != nil {
		slog.Error("Invalid ACL config, denying all", "path", l.path, "error", err)
		return NewConfig()
	}

	slog.Info("Loaded ACL config", "admins", len(cfg.Admins()), "users", len(cfg.Users()))
	return cfg
}
