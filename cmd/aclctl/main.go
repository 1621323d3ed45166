// aclctl manages the access-control document stored in the secret
// backend. Operators edit YAML; the stored form is the canonical JSON the
// server parses.
//
// Usage:
//
//	aclctl get                 fetch and print the stored ACL as JSON
//	aclctl validate <file>     parse and validate a YAML/JSON document
//	aclctl set <file|->        validate and store a document
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"vpsbot/internal/acl"
	"vpsbot/internal/config"
	"vpsbot/internal/secrets"
)

// knownProviders is what "a name known to the registry" means at
// authoring time. Keep in sync with the registrations in cmd/server.
var knownProviders = map[string]bool{
	"bitlaunch": true,
	"kamatera":  true,
}

func main() {
	configPath := flag.String("config", "", "Path to config.json")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: aclctl [-config path] <get|validate|set> [file]")
		os.Exit(2)
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch flag.Arg(0) {
	case "get":
		err = runGet(ctx, cfg)
	case "validate":
		err = runValidate(flag.Arg(1))
	case "set":
		err = runSet(ctx, cfg, flag.Arg(1))
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func store(cfg *config.Config) *secrets.RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return secrets.NewRedisProvider(client, cfg.RedisPrefix)
}

func runGet(ctx context.Context, cfg *config.Config) error {
	raw, found, err := store(cfg).Get(ctx, cfg.ACLPath, true)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no ACL document at %s", cfg.ACLPath)
	}

	cfgDoc, err := acl.Parse([]byte(raw))
	if err != nil {
		return fmt.Errorf("stored document is invalid: %w", err)
	}

	out, err := canonicalJSON(cfgDoc)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runValidate(path string) error {
	cfgDoc, err := loadDocument(path)
	if err != nil {
		return err
	}
	fmt.Printf("valid: %d admin(s), %d user(s)\n",
		len(cfgDoc.Admins()), len(cfgDoc.Users()))
	return nil
}

func runSet(ctx context.Context, cfg *config.Config, path string) error {
	cfgDoc, err := loadDocument(path)
	if err != nil {
		return err
	}

	out, err := canonicalJSON(cfgDoc)
	if err != nil {
		return err
	}
	if err := store(cfg).Set(ctx, cfg.ACLPath, string(out)); err != nil {
		return fmt.Errorf("store ACL: %w", err)
	}
	fmt.Printf("stored %d admin(s), %d user(s) at %s\n",
		len(cfgDoc.Admins()), len(cfgDoc.Users()), cfg.ACLPath)
	return nil
}

func loadDocument(path string) (*acl.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("missing file argument")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	jsonDoc, err := yamlToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	cfgDoc, err := acl.Parse(jsonDoc)
	if err != nil {
		return nil, err
	}
	if err := acl.Validate(cfgDoc, func(name string) bool { return knownProviders[name] }); err != nil {
		return nil, err
	}
	return cfgDoc, nil
}

func canonicalJSON(cfgDoc *acl.Config) ([]byte, error) {
	raw, err := cfgDoc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	// Round-trip guarantee: the stored form must parse back identically.
	check, err := acl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical form does not round-trip: %w", err)
	}
	if !cfgDoc.Equal(check) {
		return nil, fmt.Errorf("canonical form does not round-trip")
	}
	return raw, nil
}

// yamlToJSON converts a YAML document to JSON while preserving mapping
// key order. Plain JSON input passes through unchanged semantically,
// since YAML is a superset.
func yamlToJSON(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var buf bytes.Buffer
	if err := encodeNode(&buf, node.Content[0]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeNode(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			buf.WriteString("null")
		case "!!int", "!!bool":
			buf.WriteString(n.Value)
		case "!!float":
			buf.WriteString(n.Value)
		default:
			s, err := json.Marshal(n.Value)
			if err != nil {
				return err
			}
			buf.Write(s)
		}
	case yaml.AliasNode:
		return encodeNode(buf, n.Alias)
	default:
		return fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
	return nil
}
