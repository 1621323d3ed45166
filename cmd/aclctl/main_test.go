package main

import (
	"testing"

	"vpsbot/internal/acl"
)

func TestYamlToJSON(t *testing.T) {
	t.Run("preserves mapping order", func(t *testing.T) {
		doc := []byte("admins:\n  - 123\nusers:\n  \"42\":\n    kamatera: null\n    bitlaunch:\n      servers: [web-1]\n")

		jsonDoc, err := yamlToJSON(doc)
		if err != nil {
			t.Fatalf("yamlToJSON() error = %v", err)
		}

		cfg, err := acl.Parse(jsonDoc)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		providers := cfg.UserProviders(42)
		if len(providers) != 2 || providers[0] != "kamatera" || providers[1] != "bitlaunch" {
			t.Errorf("providers = %v, want [kamatera bitlaunch]", providers)
		}
	})

	t.Run("json input passes through", func(t *testing.T) {
		doc := []byte(`{"admins": [123], "users": {"42": {"bitlaunch": {"servers": []}}}}`)

		jsonDoc, err := yamlToJSON(doc)
		if err != nil {
			t.Fatalf("yamlToJSON() error = %v", err)
		}
		cfg, err := acl.Parse(jsonDoc)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if !cfg.IsAdmin(123) {
			t.Error("admin lost in conversion")
		}
		g, ok := cfg.UserGrant(42, "bitlaunch")
		if !ok || g.Unrestricted() || g.AllowsServer("anything") {
			t.Errorf("expected explicit deny grant, got %+v ok=%v", g, ok)
		}
	})

	t.Run("empty document rejected", func(t *testing.T) {
		if _, err := yamlToJSON([]byte("")); err == nil {
			t.Error("expected error for empty input")
		}
	})
}

func TestCanonicalJSONRoundTrip(t *testing.T) {
	doc := []byte("admins: [1, 2]\nusers:\n  \"42\":\n    bitlaunch:\n      servers:\n        - web-1\n        - web-2\n  \"77\":\n    kamatera: null\n")

	jsonDoc, err := yamlToJSON(doc)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := acl.Parse(jsonDoc)
	if err != nil {
		t.Fatal(err)
	}

	out, err := canonicalJSON(cfg)
	if err != nil {
		t.Fatalf("canonicalJSON() error = %v", err)
	}

	again, err := acl.Parse(out)
	if err != nil {
		t.Fatalf("re-parse error = %v", err)
	}
	if !cfg.Equal(again) {
		t.Error("canonical form did not round-trip to an equal config")
	}
}
