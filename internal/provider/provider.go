// Package provider defines the polymorphic client capability for VPS
// backends and a registry that builds authenticated clients on demand.
// It replaces hardcoded type-switch logic with table-driven dispatch.
package provider

import (
	"context"
	"fmt"
	"strings"

	errs "vpsbot/internal/errors"
	"vpsbot/internal/secrets"
)

// Server is the normalized shape every backend maps its servers into.
// Name is the human-facing lookup key (exact, case-sensitive matching);
// ID is the opaque provider-specific identifier used for actions.
type Server struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	IP     string `json:"ip,omitempty"`
}

// Client is the capability each backend implements.
type Client interface {
	// Name returns the provider identifier (e.g. "bitlaunch", "kamatera").
	Name() string
	// FindServerByName looks up a server by exact name. A nil server with
	// a nil error means not found; errors are reserved for API failures.
	// Callers branch on presence, not on errors, when deciding whether to
	// keep searching elsewhere.
	FindServerByName(ctx context.Context, name string) (*Server, error)
	// RebootServer resolves the name and issues a restart. An unresolved
	// name is Error{KindNotFound}.
	RebootServer(ctx context.Context, name string) error
	// ListServers returns all servers in upstream order. Entries whose
	// bulk listing omits the IP are enriched individually; enrichment
	// failures leave the IP empty rather than failing the batch.
	ListServers(ctx context.Context) ([]Server, error)
}

// Factory builds a client from a credential bundle.
type Factory func(creds map[string]string) (Client, error)

// Registry maps provider names to factories. Registration order is the
// order admins fan out in, so it is preserved.
type Registry struct {
	order     []string
	factories map[string]Factory

	secrets     secrets.Provider
	credsPrefix string
}

// NewRegistry creates a registry drawing credentials from the given
// secret provider under the given path prefix.
func NewRegistry(sp secrets.Provider, credsPrefix string) *Registry {
	return &Registry{
		factories:   make(map[string]Factory),
		secrets:     sp,
		credsPrefix: credsPrefix,
	}
}

// Register adds a provider factory under the given name (lower-cased).
func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(name)
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Known reports whether a provider name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[strings.ToLower(name)]
	return ok
}

// Names returns all registered provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// New builds a fresh authenticated client for the named provider.
// Credential values are cached by the secrets layer; client objects are
// deliberately not shared across invocations. Unknown names and missing
// credential fields are configuration errors.
func (r *Registry) New(ctx context.Context, name string) (Client, error) {
	name = strings.ToLower(name)
	f, ok := r.factories[name]
	if !ok {
		return nil, errs.Wrap(
			fmt.Errorf("unknown provider %q, supported: %s", name, strings.Join(r.order, ", ")),
			errs.ErrConfiguration)
	}

	creds, err := secrets.Credentials(ctx, r.secrets, r.credsPrefix, name)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrConfiguration)
	}

	client, err := f(creds)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrConfiguration)
	}
	return client, nil
}
