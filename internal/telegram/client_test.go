package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient("test-token", ts.URL, ts.Client())
}

func TestSend(t *testing.T) {
	t.Run("plain message", func(t *testing.T) {
		var gotPath string
		var payload map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			io.WriteString(w, `{"ok": true}`)
		})

		err := client.Send(context.Background(), 123, "hello", SendOptions{})
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if gotPath != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", gotPath)
		}
		if payload["text"] != "hello" {
			t.Errorf("text = %v", payload["text"])
		}
		if _, present := payload["parse_mode"]; present {
			t.Error("parse_mode must be omitted for plain text")
		}
		if _, present := payload["reply_parameters"]; present {
			t.Error("reply_parameters must be omitted without a reply target")
		}
	})

	t.Run("markdown reply", func(t *testing.T) {
		var payload map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&payload)
			io.WriteString(w, `{"ok": true}`)
		})

		err := client.Send(context.Background(), 123, "*hi*",
			SendOptions{ParseMode: "Markdown", ReplyTo: 42})
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if payload["parse_mode"] != "Markdown" {
			t.Errorf("parse_mode = %v", payload["parse_mode"])
		}
		reply, ok := payload["reply_parameters"].(map[string]interface{})
		if !ok || reply["message_id"] != float64(42) {
			t.Errorf("reply_parameters = %v", payload["reply_parameters"])
		}
	})

	t.Run("api error carries description", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"ok": false, "description": "chat not found"}`)
		})

		err := client.Send(context.Background(), 123, "hello", SendOptions{})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "chat not found") {
			t.Errorf("error = %v, want description included", err)
		}
	})
}

func TestSetMyCommands(t *testing.T) {
	t.Run("scoped menu", func(t *testing.T) {
		var payload map[string]interface{}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/bottest-token/setMyCommands" {
				t.Errorf("path = %q", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&payload)
			io.WriteString(w, `{"ok": true}`)
		})

		err := client.SetMyCommands(context.Background(),
			[]Command{{Command: "help", Description: "Show available commands"}},
			&CommandScope{Type: "chat", ChatID: 123})
		if err != nil {
			t.Fatalf("SetMyCommands() error = %v", err)
		}
		scope, ok := payload["scope"].(map[string]interface{})
		if !ok || scope["type"] != "chat" || scope["chat_id"] != float64(123) {
			t.Errorf("scope = %v", payload["scope"])
		}
	})

	t.Run("failure is reported not fatal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		err := client.SetMyCommands(context.Background(),
			[]Command{{Command: "id", Description: "Show your chat id"}}, nil)
		if err == nil {
			t.Fatal("expected error for caller-side logging")
		}
	})
}
