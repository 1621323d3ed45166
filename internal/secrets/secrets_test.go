package secrets

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingProvider struct {
	Static
	calls atomic.Int64
}

func (c *countingProvider) Get(ctx context.Context, path string, decrypt bool) (string, bool, error) {
	c.calls.Add(1)
	return c.Static.Get(ctx, path, decrypt)
}

func TestCachedFetchesOnce(t *testing.T) {
	inner := &countingProvider{Static: Static{"/p/token": "abc"}}
	cached := NewCached(inner)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, found, err := cached.Get(ctx, "/p/token", true)
			if err != nil || !found || v != "abc" {
				t.Errorf("Get=%q,%v,%v", v, found, err)
			}
		}()
	}
	wg.Wait()

	// Second round must be served from cache.
	if _, _, err := cached.Get(ctx, "/p/token", true); err != nil {
		t.Fatal(err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("inner fetches=%d want=1", got)
	}
}

func TestCachedAbsent(t *testing.T) {
	inner := &countingProvider{Static: Static{}}
	cached := NewCached(inner)

	_, found, err := cached.Get(context.Background(), "/missing", true)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("missing path should not be found")
	}
}

func TestEnvKey(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/telegram-vps-bot/telegram-token", "TELEGRAM_VPS_BOT_TELEGRAM_TOKEN"},
		{"/telegram-vps-bot/credentials/bitlaunch", "TELEGRAM_VPS_BOT_CREDENTIALS_BITLAUNCH"},
		{"plain", "PLAIN"},
	}
	for _, tc := range cases {
		if got := envKey(tc.path); got != tc.want {
			t.Errorf("envKey(%q)=%q want=%q", tc.path, got, tc.want)
		}
	}
}

func TestRedisProvider(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	p := NewRedisProvider(client, "test:")
	ctx := context.Background()

	if err := p.Set(ctx, "/telegram-vps-bot/acl-config", `{"admins":[1]}`); err != nil {
		t.Fatal(err)
	}

	v, found, err := p.Get(ctx, "/telegram-vps-bot/acl-config", true)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if v != `{"admins":[1]}` {
		t.Fatalf("value=%q", v)
	}

	_, found, err = p.Get(ctx, "/nope", true)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("absent key must report not found")
	}
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	prefix := "/telegram-vps-bot/credentials/"

	t.Run("valid bundle", func(t *testing.T) {
		p := Static{prefix + "bitlaunch": `{"api_key":"k1"}`}
		creds, err := Credentials(ctx, p, prefix, "bitlaunch")
		if err != nil {
			t.Fatal(err)
		}
		if creds["api_key"] != "k1" {
			t.Fatalf("creds=%v", creds)
		}
	})

	t.Run("absent bundle yields empty map", func(t *testing.T) {
		creds, err := Credentials(ctx, Static{}, prefix, "kamatera")
		if err != nil {
			t.Fatal(err)
		}
		if len(creds) != 0 {
			t.Fatalf("creds=%v want empty", creds)
		}
	})

	t.Run("malformed bundle is an error", func(t *testing.T) {
		p := Static{prefix + "bitlaunch": `{not json`}
		if _, err := Credentials(ctx, p, prefix, "bitlaunch"); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})
}
