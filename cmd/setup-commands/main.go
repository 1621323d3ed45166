// setup-commands registers the bot's command menus with Telegram. All
// chats get the basic menu; chats present in the ACL additionally get the
// privileged commands scoped to their chat.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"vpsbot/internal/acl"
	"vpsbot/internal/config"
	"vpsbot/internal/provider"
	"vpsbot/internal/secrets"
	"vpsbot/internal/telegram"
)

var defaultCommands = []telegram.Command{
	{Command: "id", Description: "Get your Telegram chat ID"},
	{Command: "help", Description: "Show available commands"},
}

var authorizedCommands = []telegram.Command{
	{Command: "id", Description: "Get your Telegram chat ID"},
	{Command: "help", Description: "Show available commands"},
	{Command: "find", Description: "Find a server by name"},
	{Command: "reboot", Description: "Reboot a server"},
	{Command: "list", Description: "List servers"},
}

func main() {
	configPath := flag.String("config", "", "Path to config.json")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var secretProvider secrets.Provider
	if cfg.SecretBackend == "env" {
		secretProvider = secrets.NewEnvProvider()
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		secretProvider = secrets.NewRedisProvider(client, cfg.RedisPrefix)
	}

	token, found, err := secretProvider.Get(ctx, cfg.TelegramTokenPath, true)
	if err != nil || !found || token == "" {
		slog.Error("Telegram token not found", "path", cfg.TelegramTokenPath, "error", err)
		os.Exit(1)
	}

	aclCfg := acl.NewLoader(secretProvider, cfg.ACLPath).Load(ctx)
	admins := aclCfg.Admins()
	users := aclCfg.Users()
	slog.Info("Loaded ACL", "admins", len(admins), "users", len(users))

	httpc := provider.NewHTTPClient(time.Duration(cfg.RequestTimeout) * time.Second)
	client := telegram.NewClient(token, cfg.TelegramBaseURL, httpc)

	okDefault := client.SetMyCommands(ctx, defaultCommands, nil) == nil
	if okDefault {
		slog.Info("Default commands set")
	} else {
		slog.Warn("Failed to set default commands")
	}

	// Deduplicate: an id may be both admin and user.
	seen := make(map[int64]bool)
	var authorized []int64
	for _, id := range append(append([]int64{}, admins...), users...) {
		if !seen[id] {
			seen[id] = true
			authorized = append(authorized, id)
		}
	}

	configured := 0
	for _, chatID := range authorized {
		scope := &telegram.CommandScope{Type: "chat", ChatID: chatID}
		if err := client.SetMyCommands(ctx, authorizedCommands, scope); err != nil {
			// Happens when the chat never messaged the bot.
			slog.Warn("Failed to set commands for chat", "chat_id", chatID, "error", err)
			continue
		}
		configured++
		slog.Info("Commands set for chat", "chat_id", chatID, "admin", aclCfg.IsAdmin(chatID))
	}

	fmt.Printf("default: %v, authorized chats configured: %d/%d\n",
		okDefault, configured, len(authorized))
}
