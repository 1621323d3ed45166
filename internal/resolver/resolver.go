// Package resolver locates a server by bare name across every provider an
// identity may query. The scan is strictly sequential and order-preserving:
// when a name exists under more than one provider, the earliest accessible
// provider wins, so ordering is part of the contract, not an accident.
package resolver

import (
	"context"
	"log/slog"

	"vpsbot/internal/acl"
	"vpsbot/internal/provider"
)

// Match is a resolved server together with the provider it was found on.
type Match struct {
	Provider string
	Client   provider.Client
	Server   provider.Server
}

// Resolver fans a name lookup out across accessible providers.
type Resolver struct {
	acl      *acl.Loader
	registry *provider.Registry
}

func New(loader *acl.Loader, registry *provider.Registry) *Resolver {
	return &Resolver{acl: loader, registry: registry}
}

// Providers returns the providers the identity may query, in the stable
// order resolution uses (grant order for users, registration order for
// admins).
func (r *Resolver) Providers(ctx context.Context, chatID int64) []string {
	return r.acl.Load(ctx).AccessibleProviders(chatID, r.registry.Names())
}

// Resolve scans the identity's accessible providers in order and returns
// the first one holding a server with the given name. A provider whose
// grant excludes the name, fails to build, or errors on lookup is skipped;
// the scan only gives up once every provider has been tried. A nil result
// means no accessible provider knows the name.
func (r *Resolver) Resolve(ctx context.Context, chatID int64, serverName string) *Match {
	cfg := r.acl.Load(ctx)
	providers := cfg.AccessibleProviders(chatID, r.registry.Names())
	slog.Info("Searching for server across providers",
		"chat_id", chatID, "server", serverName, "providers", providers)

	for _, name := range providers {
		// The allow-list is enforced here, not inside the provider
		// client: a provider whose grant excludes this server name is
		// never queried for it.
		if !cfg.CanAccess(chatID, name, serverName) {
			slog.Info("Skipping provider, server not in allow-list",
				"provider", name, "server", serverName)
			continue
		}

		client, err := r.registry.New(ctx, name)
		if err != nil {
			slog.Warn("Skipping provider, client construction failed",
				"provider", name, "error", err)
			continue
		}

		server, err := client.FindServerByName(ctx, serverName)
		if err != nil {
			slog.Warn("Skipping provider, lookup failed",
				"provider", name, "error", err)
			continue
		}
		if server != nil {
			slog.Info("Server resolved", "provider", name, "server", serverName)
			return &Match{Provider: name, Client: client, Server: *server}
		}
	}

	slog.Info("Server not found on any provider",
		"chat_id", chatID, "server", serverName)
	return nil
}
