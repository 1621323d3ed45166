// Seeds the secret store for local development: bot token, provider
// credentials and a starter ACL. Values come from the environment so no
// secret ever lands in the repo.
//
//	TELEGRAM_TOKEN=... BITLAUNCH_API_KEY=... KAMATERA_CLIENT_ID=... \
//	KAMATERA_SECRET=... ADMIN_CHAT_ID=123 go run scripts/seed.go
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"vpsbot/internal/acl"
	"vpsbot/internal/config"
	"vpsbot/internal/secrets"
)

func main() {
	cfg, _, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := secrets.NewRedisProvider(client, cfg.RedisPrefix)
	ctx := context.Background()

	seeded := 0
	put := func(path, value string) {
		if value == "" {
			return
		}
		if err := store.Set(ctx, path, value); err != nil {
			fmt.Printf("Failed to seed %s: %v\n", path, err)
			os.Exit(1)
		}
		seeded++
		fmt.Printf("seeded %s\n", path)
	}

	put(cfg.TelegramTokenPath, os.Getenv("TELEGRAM_TOKEN"))

	if key := os.Getenv("BITLAUNCH_API_KEY"); key != "" {
		creds, _ := json.Marshal(map[string]string{"api_key": key})
		put(cfg.CredentialsPrefix+"bitlaunch", string(creds))
	}
	if id := os.Getenv("KAMATERA_CLIENT_ID"); id != "" {
		creds, _ := json.Marshal(map[string]string{
			"client_id": id,
			"secret":    os.Getenv("KAMATERA_SECRET"),
		})
		put(cfg.CredentialsPrefix+"kamatera", string(creds))
	}

	if admin := os.Getenv("ADMIN_CHAT_ID"); admin != "" {
		id, err := strconv.ParseInt(admin, 10, 64)
		if err != nil {
			fmt.Printf("Invalid ADMIN_CHAT_ID %q\n", admin)
			os.Exit(1)
		}
		doc := acl.NewConfig()
		doc.AddAdmin(id)
		raw, err := doc.MarshalJSON()
		if err != nil {
			fmt.Printf("Failed to build ACL: %v\n", err)
			os.Exit(1)
		}
		put(cfg.ACLPath, string(raw))
	}

	fmt.Printf("Seed complete: %d value(s)\n", seeded)
}
