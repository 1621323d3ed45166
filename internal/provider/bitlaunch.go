package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vpsbot/internal/reliability"
)

// BitLaunch talks to the BitLaunch.io API. Authentication is a bearer
// token; the API has no server-side name filter, so lookups scan the
// full listing client-side.
type BitLaunch struct {
	api apiClient
}

// NewBitLaunch builds a BitLaunch client from a credential bundle.
func NewBitLaunch(creds map[string]string, baseURL string, httpc *http.Client, breaker *reliability.CircuitBreaker) (*BitLaunch, error) {
	apiKey := creds["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("bitlaunch credentials missing %q", "api_key")
	}
	return &BitLaunch{
		api: apiClient{
			provider: "bitlaunch",
			baseURL:  baseURL,
			httpc:    httpc,
			breaker:  breaker,
			headers: func() map[string]string {
				return map[string]string{"Authorization": "Bearer " + apiKey}
			},
		},
	}, nil
}

func (b *BitLaunch) Name() string { return "bitlaunch" }

type bitlaunchServer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	IP     string `json:"ip"`
}

func (s bitlaunchServer) normalize() Server {
	return Server{Name: s.Name, ID: s.ID, Status: s.Status, IP: s.IP}
}

func (b *BitLaunch) ListServers(ctx context.Context) ([]Server, error) {
	var raw []bitlaunchServer
	if err := b.api.doJSON(ctx, "list", http.MethodGet, "/servers", nil, &raw); err != nil {
		return nil, err
	}

	servers := make([]Server, 0, len(raw))
	for _, s := range raw {
		servers = append(servers, s.normalize())
	}
	return servers, nil
}

func (b *BitLaunch) FindServerByName(ctx context.Context, name string) (*Server, error) {
	servers, err := b.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range servers {
		if servers[i].Name == name {
			slog.Info("Found server", "provider", "bitlaunch", "server", name, "id", servers[i].ID)
			return &servers[i], nil
		}
	}
	slog.Info("Server not found", "provider", "bitlaunch", "server", name)
	return nil, nil
}

func (b *BitLaunch) RebootServer(ctx context.Context, name string) error {
	server, err := b.FindServerByName(ctx, name)
	if err != nil {
		return err
	}
	if server == nil {
		return &Error{Provider: "bitlaunch", Kind: KindNotFound, Err: fmt.Errorf("server %q not found", name)}
	}

	slog.Info("Rebooting server", "provider", "bitlaunch", "server", name, "id", server.ID)
	err = b.api.doJSON(ctx, "reboot", http.MethodPost, "/servers/"+server.ID+"/restart", nil, nil)
	if err != nil {
		// The server vanished between lookup and action.
		var pe *Error
		if errors.As(err, &pe) && pe.Kind == KindUpstream && pe.Status == http.StatusNotFound {
			return &Error{Provider: "bitlaunch", Kind: KindNotFound, Err: fmt.Errorf("server %q not found", name)}
		}
		return err
	}
	return nil
}
