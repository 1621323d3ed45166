package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"vpsbot/internal/reliability"
)

// Kamatera talks to the Kamatera CloudCLI API. Authentication is a
// client id / secret header pair. Name lookups filter server-side via
// the info endpoint; the bulk listing omits addresses, so ListServers
// enriches each entry with an info call.
type Kamatera struct {
	api apiClient
}

// NewKamatera builds a Kamatera client from a credential bundle.
func NewKamatera(creds map[string]string, baseURL string, httpc *http.Client, breaker *reliability.CircuitBreaker) (*Kamatera, error) {
	clientID := creds["client_id"]
	secret := creds["secret"]
	if clientID == "" {
		return nil, fmt.Errorf("kamatera credentials missing %q", "client_id")
	}
	if secret == "" {
		return nil, fmt.Errorf("kamatera credentials missing %q", "secret")
	}
	return &Kamatera{
		api: apiClient{
			provider: "kamatera",
			baseURL:  baseURL,
			httpc:    httpc,
			breaker:  breaker,
			headers: func() map[string]string {
				return map[string]string{
					"AuthClientId": clientID,
					"AuthSecret":   secret,
				}
			},
		},
	}, nil
}

func (k *Kamatera) Name() string { return "kamatera" }

type kamateraServer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Power    string `json:"power"`
	Networks []struct {
		Network string   `json:"network"`
		IPs     []string `json:"ips"`
	} `json:"networks"`
}

func (s kamateraServer) normalize() Server {
	return Server{Name: s.Name, ID: s.ID, Status: powerStatus(s.Power), IP: s.publicIP()}
}

// powerStatus translates Kamatera's power field into the status vocabulary
// the other providers use.
func powerStatus(power string) string {
	switch power {
	case "on":
		return "running"
	case "off":
		return "stopped"
	}
	return power
}

// publicIP returns the first address on a public (wan-) network. Servers
// with only private networks report no address.
func (s kamateraServer) publicIP() string {
	for _, n := range s.Networks {
		if strings.HasPrefix(n.Network, "wan-") && len(n.IPs) > 0 {
			return n.IPs[0]
		}
	}
	return ""
}

// info issues the server-side filtered lookup. An empty result set means
// the name does not exist.
func (k *Kamatera) info(ctx context.Context, name string) (*kamateraServer, error) {
	var raw []kamateraServer
	err := k.api.doJSON(ctx, "info", http.MethodPost, "/service/server/info",
		map[string]string{"name": name}, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return &raw[0], nil
}

func (k *Kamatera) FindServerByName(ctx context.Context, name string) (*Server, error) {
	raw, err := k.info(ctx, name)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		slog.Info("Server not found", "provider", "kamatera", "server", name)
		return nil, nil
	}
	slog.Info("Found server", "provider", "kamatera", "server", name, "id", raw.ID)
	server := raw.normalize()
	return &server, nil
}

func (k *Kamatera) RebootServer(ctx context.Context, name string) error {
	server, err := k.FindServerByName(ctx, name)
	if err != nil {
		return err
	}
	if server == nil {
		return &Error{Provider: "kamatera", Kind: KindNotFound, Err: fmt.Errorf("server %q not found", name)}
	}

	slog.Info("Rebooting server", "provider", "kamatera", "server", name, "id", server.ID)
	err = k.api.doJSON(ctx, "reboot", http.MethodPost, "/service/server/reboot",
		map[string]string{"id": server.ID}, nil)
	if err != nil {
		// The server vanished between lookup and action.
		var pe *Error
		if errors.As(err, &pe) && pe.Kind == KindUpstream && pe.Status == http.StatusNotFound {
			return &Error{Provider: "kamatera", Kind: KindNotFound, Err: fmt.Errorf("server %q not found", name)}
		}
		return err
	}
	return nil
}

func (k *Kamatera) ListServers(ctx context.Context) ([]Server, error) {
	var raw []kamateraServer
	if err := k.api.doJSON(ctx, "list", http.MethodGet, "/service/servers", nil, &raw); err != nil {
		return nil, err
	}

	servers := make([]Server, 0, len(raw))
	for _, s := range raw {
		server := s.normalize()
		if server.IP == "" {
			// The bulk listing has no network data; fetch it per server.
			// Only the address is merged in, since the info response omits
			// the power field. A failed enrichment degrades to an empty IP.
			if detail, err := k.info(ctx, s.Name); err == nil && detail != nil {
				server.IP = detail.publicIP()
			} else if err != nil {
				slog.Warn("Server detail enrichment failed",
					"provider", "kamatera", "server", s.Name, "error", err)
			}
		}
		servers = append(servers, server)
	}
	return servers, nil
}
