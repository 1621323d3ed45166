package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vpsbot/internal/audit"
)

type stubAudit struct {
	events []audit.Event
}

func (s *stubAudit) Log(_ context.Context, e audit.Event) {
	s.events = append([]audit.Event{e}, s.events...)
}

func (s *stubAudit) Query(_ context.Context, opts audit.QueryOpts) ([]audit.Event, error) {
	return s.events, nil
}

func (s *stubAudit) Close() {}

func TestAdminAuditAuthorization(t *testing.T) {
	h := NewAdminAudit("secret", audit.NewNopLogger())
	ts := httptest.NewServer(h)
	defer ts.Close()

	t.Run("missing token", func(t *testing.T) {
		resp, err := http.Get(ts.URL)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "?token=wrong")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("empty configured token rejects everything", func(t *testing.T) {
		open := NewAdminAudit("", audit.NewNopLogger())
		ts2 := httptest.NewServer(open)
		defer ts2.Close()

		resp, err := http.Get(ts2.URL + "?token=")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestAdminAuditStreamsEvents(t *testing.T) {
	log := &stubAudit{events: []audit.Event{
		{Timestamp: time.Now(), ChatID: 123, Command: "/reboot",
			Provider: "bitlaunch", Server: "web-1", Status: audit.StatusOK},
	}}
	h := NewAdminAudit("secret", log)
	h.pollInterval = 10 * time.Millisecond
	ts := httptest.NewServer(h)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev audit.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.ChatID != 123 || ev.Command != "/reboot" || ev.Server != "web-1" {
		t.Errorf("event = %+v", ev)
	}
}
