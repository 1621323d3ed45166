package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"vpsbot/internal/acl"
	"vpsbot/internal/audit"
	"vpsbot/internal/config"
	"vpsbot/internal/handler"
	"vpsbot/internal/middleware"
	"vpsbot/internal/provider"
	"vpsbot/internal/reliability"
	"vpsbot/internal/resolver"
	"vpsbot/internal/secrets"
	"vpsbot/internal/telegram"
)

func main() {
	configPath := flag.String("config", "", "Path to config.json")
	flag.Parse()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level = slog.LevelInfo
	if cfg.DebugEnabled {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Secret backend: redis for deployments, env for local development.
	var redisClient *redis.Client
	var secretProvider secrets.Provider
	switch cfg.SecretBackend {
	case "env":
		secretProvider = secrets.NewEnvProvider()
		slog.Info("Secret backend initialized", "backend", "env")
	default:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		secretProvider = secrets.NewRedisProvider(redisClient, cfg.RedisPrefix)
		slog.Info("Secret backend initialized", "backend", "redis", "addr", cfg.RedisAddr)
	}
	secretProvider = secrets.NewCached(secretProvider)

	aclLoader := acl.NewLoader(secretProvider, cfg.ACLPath)

	// One outbound client and one breaker per provider; the client timeout
	// is the hard ceiling on any upstream call.
	httpc := provider.NewHTTPClient(time.Duration(cfg.RequestTimeout) * time.Second)
	breakers := reliability.NewManager(reliability.DefaultConfig("provider"))

	registry := provider.NewRegistry(secretProvider, cfg.CredentialsPrefix)
	registry.Register("bitlaunch", func(creds map[string]string) (provider.Client, error) {
		return provider.NewBitLaunch(creds, cfg.BitLaunchBaseURL, httpc, breakers.Breaker("bitlaunch"))
	})
	registry.Register("kamatera", func(creds map[string]string) (provider.Client, error) {
		return provider.NewKamatera(creds, cfg.KamateraBaseURL, httpc, breakers.Breaker("kamatera"))
	})

	var auditLogger audit.Logger = audit.NewNopLogger()
	if redisClient != nil {
		redisAudit := audit.NewRedisLogger(redisClient, cfg.RedisPrefix, cfg.AuditMaxLen)
		defer redisAudit.Close()
		auditLogger = redisAudit
		slog.Info("Audit logger initialized", "backend", "redis")
	}

	res := resolver.New(aclLoader, registry)
	dispatcher := handler.NewDispatcher(aclLoader, registry, res, auditLogger)

	sinkFactory := func(ctx context.Context) (telegram.Sink, error) {
		token, found, err := secretProvider.Get(ctx, cfg.TelegramTokenPath, true)
		if err != nil {
			return nil, fmt.Errorf("fetch telegram token: %w", err)
		}
		if !found || token == "" {
			return nil, fmt.Errorf("telegram token missing at %s", cfg.TelegramTokenPath)
		}
		return telegram.NewClient(token, cfg.TelegramBaseURL, httpc), nil
	}

	webhook := handler.NewWebhook(sinkFactory, dispatcher)
	adminAudit := handler.NewAdminAudit(cfg.AdminToken, auditLogger)

	mux := http.NewServeMux()
	limiter := middleware.NewConcurrencyLimiter(cfg.ConcurrencyLimit, time.Duration(cfg.ConcurrencyTimeout)*time.Second)
	rate := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	registerRoutes(mux, webhook, adminAudit, limiter, rate)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(
			middleware.SecurityHeaders,
			middleware.TraceMiddleware,
			middleware.LoggingMiddleware,
		)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		slog.Info("Received signal, starting graceful shutdown", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		close(idleConnsClosed)
	}()

	slog.Info("Server running", "port", cfg.Port, "providers", registry.Names())

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("Server start failed", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	slog.Info("Server shutdown gracefully")
}
