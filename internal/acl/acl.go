// Package acl implements the access-control model: admins, per-user
// provider grants and per-provider server allow-lists.
//
// The stored document is JSON:
//
//	{"admins": [123], "users": {"456": {"bitlaunch": {"servers": ["web-1"]}}}}
//
// A grant's servers value of null (or a missing key, or a null provider
// value) means unrestricted access; an empty list is an explicit deny.
// Provider key order inside a user entry is significant: it is the order
// the resolver queries providers in, so parsing and serialization both
// preserve it.
package acl

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Grant describes one user's access to a single provider.
type Grant struct {
	// Servers is nil for unrestricted access, empty for an explicit
	// deny, and a non-empty allow-list otherwise.
	Servers []string
}

// Unrestricted reports whether the grant allows every server.
func (g Grant) Unrestricted() bool {
	return g.Servers == nil
}

// AllowsServer reports whether the grant covers the named server.
// Matching is exact and case-sensitive.
func (g Grant) AllowsServer(name string) bool {
	if g.Servers == nil {
		return true
	}
	for _, s := range g.Servers {
		if s == name {
			return true
		}
	}
	return false
}

// UserGrants is an ordered provider -> Grant map for one user.
type UserGrants struct {
	order  []string
	grants map[string]Grant
}

// Providers returns the provider names in document order.
func (u *UserGrants) Providers() []string {
	if u == nil {
		return nil
	}
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// Grant looks up the grant for a provider.
func (u *UserGrants) Grant(provider string) (Grant, bool) {
	if u == nil {
		return Grant{}, false
	}
	g, ok := u.grants[provider]
	return g, ok
}

// Set records a grant, appending the provider to the order on first use.
func (u *UserGrants) Set(provider string, g Grant) {
	if u.grants == nil {
		u.grants = make(map[string]Grant)
	}
	if _, exists := u.grants[provider]; !exists {
		u.order = append(u.order, provider)
	}
	u.grants[provider] = g
}

// Config is an immutable access-control snapshot.
type Config struct {
	admins     map[int64]struct{}
	adminOrder []int64
	users      map[int64]*UserGrants
	userOrder  []int64
}

// NewConfig returns an empty (deny-all) configuration.
func NewConfig() *Config {
	return &Config{
		admins: make(map[int64]struct{}),
		users:  make(map[int64]*UserGrants),
	}
}

// AddAdmin records an admin identity.
func (c *Config) AddAdmin(id int64) {
	if _, ok := c.admins[id]; !ok {
		c.adminOrder = append(c.adminOrder, id)
	}
	c.admins[id] = struct{}{}
}

// SetGrant records a provider grant for a user.
func (c *Config) SetGrant(id int64, provider string, g Grant) {
	u, ok := c.users[id]
	if !ok {
		u = &UserGrants{}
		c.users[id] = u
		c.userOrder = append(c.userOrder, id)
	}
	u.Set(provider, g)
}

// IsAdmin reports whether the identity is an admin.
func (c *Config) IsAdmin(id int64) bool {
	_, ok := c.admins[id]
	return ok
}

// Admins returns the admin identities in document order.
func (c *Config) Admins() []int64 {
	out := make([]int64, len(c.adminOrder))
	copy(out, c.adminOrder)
	return out
}

// Users returns the user identities in document order.
func (c *Config) Users() []int64 {
	out := make([]int64, len(c.userOrder))
	copy(out, c.userOrder)
	return out
}

// UserProviders returns the provider names a user has grants for, in
// document order. Empty for admins without user entries: admin access is
// resolved against the registry, not the users map.
func (c *Config) UserProviders(id int64) []string {
	return c.users[id].Providers()
}

// UserGrant looks up a user's grant for a provider.
func (c *Config) UserGrant(id int64, provider string) (Grant, bool) {
	return c.users[id].Grant(provider)
}

// CanAccess is the authorization decision function.
//
//   - Admins can access everything.
//   - provider == "": true iff the user has at least one grant recorded,
//     whatever its content.
//   - server == "": true iff a grant exists for the provider.
//   - Both set: the grant must exist and either be unrestricted or list
//     the server. An explicit-deny grant (empty list) always fails here.
func (c *Config) CanAccess(id int64, provider, server string) bool {
	if c.IsAdmin(id) {
		return true
	}

	u, ok := c.users[id]
	if !ok || len(u.order) == 0 {
		return false
	}

	if provider == "" {
		return true
	}

	g, ok := u.Grant(provider)
	if !ok {
		return false
	}

	if server == "" {
		return true
	}

	return g.AllowsServer(server)
}

// AccessibleProviders returns the ordered provider set the identity may
// query: every registered provider for admins, otherwise the user's grant
// keys in document order.
func (c *Config) AccessibleProviders(id int64, registered []string) []string {
	if c.IsAdmin(id) {
		out := make([]string, len(registered))
		copy(out, registered)
		return out
	}
	return c.UserProviders(id)
}

// Equal reports whether two configs describe the same access rules:
// admins as sets, users with identical grants including the nil-vs-empty
// servers distinction. Provider order is part of the comparison.
func (c *Config) Equal(other *Config) bool {
	if len(c.admins) != len(other.admins) || len(c.users) != len(other.users) {
		return false
	}
	for id := range c.admins {
		if _, ok := other.admins[id]; !ok {
			return false
		}
	}
	for id, u := range c.users {
		ou, ok := other.users[id]
		if !ok || len(u.order) != len(ou.order) {
			return false
		}
		for i, p := range u.order {
			if ou.order[i] != p {
				return false
			}
			g := u.grants[p]
			og := ou.grants[p]
			if (g.Servers == nil) != (og.Servers == nil) || len(g.Servers) != len(og.Servers) {
				return false
			}
			for j := range g.Servers {
				if g.Servers[j] != og.Servers[j] {
					return false
				}
			}
		}
	}
	return true
}

type grantDoc struct {
	Servers []string `json:"servers"`
}

// Parse decodes the stored ACL document. Malformed input yields an error;
// callers that must stay safe-by-default degrade to NewConfig().
func Parse(data []byte) (*Config, error) {
	var doc struct {
		Admins []int64         `json:"admins"`
		Users  json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse acl document: %w", err)
	}

	cfg := NewConfig()
	for _, id := range doc.Admins {
		cfg.AddAdmin(id)
	}

	if len(doc.Users) == 0 || bytes.Equal(doc.Users, []byte("null")) {
		return cfg, nil
	}

	userKeys, err := objectKeys(doc.Users)
	if err != nil {
		return nil, fmt.Errorf("parse acl users: %w", err)
	}
	var userVals map[string]json.RawMessage
	if err := json.Unmarshal(doc.Users, &userVals); err != nil {
		return nil, fmt.Errorf("parse acl users: %w", err)
	}

	for _, idStr := range userKeys {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("acl user id %q is not numeric", idStr)
		}

		raw := userVals[idStr]
		if bytes.Equal(raw, []byte("null")) {
			continue
		}

		provKeys, err := objectKeys(raw)
		if err != nil {
			return nil, fmt.Errorf("parse grants for user %s: %w", idStr, err)
		}
		var provVals map[string]*grantDoc
		if err := json.Unmarshal(raw, &provVals); err != nil {
			return nil, fmt.Errorf("parse grants for user %s: %w", idStr, err)
		}

		for _, provider := range provKeys {
			gd := provVals[provider]
			if gd == nil {
				// Provider value of null means unrestricted.
				cfg.SetGrant(id, provider, Grant{})
				continue
			}
			cfg.SetGrant(id, provider, Grant{Servers: gd.Servers})
		}
	}

	return cfg, nil
}

// MarshalJSON serializes back to the documented shape, preserving admin
// and provider key order and the servers null-vs-empty distinction.
func (c *Config) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"admins":[`)
	for i, id := range c.adminOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.FormatInt(id, 10))
	}
	buf.WriteString(`],"users":{`)
	for i, id := range c.userOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.FormatInt(id, 10)))
		buf.WriteByte(':')
		u := c.users[id]
		buf.WriteByte('{')
		for j, provider := range u.order {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(provider))
			buf.WriteString(`:{"servers":`)
			g := u.grants[provider]
			if g.Servers == nil {
				buf.WriteString("null")
			} else {
				servers, err := json.Marshal(g.Servers)
				if err != nil {
					return nil, err
				}
				buf.Write(servers)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Validate applies the authoring-time rules used by the management tool:
// positive admin ids, at least one provider per user, provider names known
// to the registry, non-empty server names. Request-time lookups are
// deliberately more permissive.
func Validate(c *Config, known func(string) bool) error {
	for _, id := range c.adminOrder {
		if id <= 0 {
			return fmt.Errorf("admin id must be a positive integer, got %d", id)
		}
	}

	for _, id := range c.userOrder {
		u := c.users[id]
		if len(u.order) == 0 {
			return fmt.Errorf("user %d must have at least one provider", id)
		}
		for _, provider := range u.order {
			if !known(provider) {
				return fmt.Errorf("unknown provider %q for user %d", provider, id)
			}
			g := u.grants[provider]
			for _, s := range g.Servers {
				if s == "" {
					return fmt.Errorf("user %d provider %s: server names must be non-empty", id, provider)
				}
			}
		}
	}
	return nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
