package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vpsbot/internal/acl"
	"vpsbot/internal/audit"
	"vpsbot/internal/metrics"
	"vpsbot/internal/provider"
	"vpsbot/internal/resolver"
	"vpsbot/internal/telegram"
)

// Dispatcher routes parsed commands to their handlers. It is stateless
// across commands; everything it needs per message arrives as arguments.
type Dispatcher struct {
	acl      *acl.Loader
	registry *provider.Registry
	resolver *resolver.Resolver
	audit    audit.Logger
}

func NewDispatcher(loader *acl.Loader, registry *provider.Registry, res *resolver.Resolver, auditLog audit.Logger) *Dispatcher {
	return &Dispatcher{
		acl:      loader,
		registry: registry,
		resolver: res,
		audit:    auditLog,
	}
}

// Dispatch handles one inbound message. Verbs outside the whitelist are
// dropped without a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, sink telegram.Sink, chatID int64, text string, messageID int64) {
	cmd, ok := ParseCommand(text)
	if !ok {
		slog.Info("Non-command message - ignoring", "chat_id", chatID)
		return
	}

	switch cmd.Verb {
	case "/id":
		d.handleID(ctx, sink, chatID, messageID)
	case "/help":
		d.handleHelp(ctx, sink, chatID, messageID)
	case "/find":
		d.handleFind(ctx, sink, chatID, cmd.Arg, messageID)
	case "/reboot":
		d.handleReboot(ctx, sink, chatID, cmd.Arg, messageID)
	case "/list":
		d.handleList(ctx, sink, chatID, cmd.Arg, messageID)
	default:
		slog.Info("Ignoring non-whitelisted command", "chat_id", chatID, "command", cmd.Verb)
	}
}

// send helpers mirror the three message classes: plain, success (check
// mark prefix) and error (cross mark prefix). Delivery failures are
// logged, never propagated; a lost reply must not fail the webhook.

func (d *Dispatcher) send(ctx context.Context, sink telegram.Sink, chatID int64, text string, opts telegram.SendOptions) {
	if err := sink.Send(ctx, chatID, text, opts); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (d *Dispatcher) sendSuccess(ctx context.Context, sink telegram.Sink, chatID int64, text string, opts telegram.SendOptions) {
	d.send(ctx, sink, chatID, "✓ "+text, opts)
}

func (d *Dispatcher) sendError(ctx context.Context, sink telegram.Sink, chatID int64, text string, opts telegram.SendOptions) {
	d.send(ctx, sink, chatID, "❌ Error: "+text, opts)
}

func (d *Dispatcher) record(ctx context.Context, event audit.Event, status string) {
	event.Status = status
	event.Admin = d.acl.Load(ctx).IsAdmin(event.ChatID)
	d.audit.Log(ctx, event)
	metrics.Commands.WithLabelValues(event.Command, status).Inc()
}

func (d *Dispatcher) handleID(ctx context.Context, sink telegram.Sink, chatID, messageID int64) {
	slog.Info("Handling /id command", "chat_id", chatID)
	d.send(ctx, sink, chatID, fmt.Sprintf("Your chat ID: `%d`", chatID),
		telegram.SendOptions{ParseMode: "Markdown", ReplyTo: messageID})
	metrics.Commands.WithLabelValues("/id", "ok").Inc()
}

func (d *Dispatcher) handleHelp(ctx context.Context, sink telegram.Sink, chatID, messageID int64) {
	slog.Info("Handling /help command", "chat_id", chatID)

	text := helpTextBasic
	if d.acl.Load(ctx).CanAccess(chatID, "", "") {
		text = helpTextAuthorized
	}
	d.send(ctx, sink, chatID, text, telegram.SendOptions{ReplyTo: messageID})
	metrics.Commands.WithLabelValues("/help", "ok").Inc()
}

func (d *Dispatcher) handleFind(ctx context.Context, sink telegram.Sink, chatID int64, arg string, messageID int64) {
	opts := telegram.SendOptions{ParseMode: "Markdown", ReplyTo: messageID}
	if arg == "" {
		d.send(ctx, sink, chatID, "❌ Usage: /find <server\\_name> or /find <provider:server\\_name>", opts)
		return
	}

	providerName, serverName := ParseServerArg(arg)
	slog.Info("Handling /find command",
		"chat_id", chatID, "provider", providerName, "server", serverName)

	event := audit.Event{ChatID: chatID, Command: "/find", Argument: arg,
		Provider: providerName, Server: serverName}
	escaped := escapeMarkdown(serverName)

	if providerName != "" {
		client, ok := d.singleProvider(ctx, sink, chatID, providerName, event, opts)
		if client == nil {
			if !ok {
				return
			}
			d.sendError(ctx, sink, chatID, "Configuration error - contact administrator",
				telegram.SendOptions{ReplyTo: messageID})
			d.record(ctx, event, audit.StatusError)
			return
		}

		server, err := client.FindServerByName(ctx, serverName)
		switch {
		case err != nil:
			d.sendError(ctx, sink, chatID, providerErrorMessage(err),
				telegram.SendOptions{ReplyTo: messageID})
			d.record(ctx, event, audit.StatusError)
		case server != nil:
			d.sendSuccess(ctx, sink, chatID,
				fmt.Sprintf("Server `%s` found on %s", escaped, providerName), opts)
			d.record(ctx, event, audit.StatusOK)
		default:
			d.sendError(ctx, sink, chatID,
				fmt.Sprintf("Server `%s` not found on %s", escaped, providerName), opts)
			d.record(ctx, event, audit.StatusOK)
		}
		return
	}

	if !d.acl.Load(ctx).CanAccess(chatID, "", "") {
		slog.Warn("Unauthorized /find attempt", "chat_id", chatID)
		d.sendError(ctx, sink, chatID, accessDeniedText, telegram.SendOptions{ReplyTo: messageID})
		d.record(ctx, event, audit.StatusDenied)
		return
	}

	if match := d.resolver.Resolve(ctx, chatID, serverName); match != nil {
		event.Provider = match.Provider
		d.sendSuccess(ctx, sink, chatID,
			fmt.Sprintf("Server `%s` found on %s", escaped, match.Provider), opts)
		d.record(ctx, event, audit.StatusOK)
		return
	}

	providers := d.resolver.Providers(ctx, chatID)
	d.sendError(ctx, sink, chatID,
		fmt.Sprintf("Server `%s` not found on any provider (%s)", escaped, strings.Join(providers, ", ")), opts)
	d.record(ctx, event, audit.StatusOK)
}

func (d *Dispatcher) handleReboot(ctx context.Context, sink telegram.Sink, chatID int64, arg string, messageID int64) {
	opts := telegram.SendOptions{ParseMode: "Markdown", ReplyTo: messageID}
	if arg == "" {
		d.send(ctx, sink, chatID, "❌ Usage: /reboot <server\\_name> or /reboot <provider:server\\_name>", opts)
		return
	}

	providerName, serverName := ParseServerArg(arg)
	slog.Info("Handling /reboot command",
		"chat_id", chatID, "provider", providerName, "server", serverName)

	event := audit.Event{ChatID: chatID, Command: "/reboot", Argument: arg,
		Provider: providerName, Server: serverName}
	escaped := escapeMarkdown(serverName)

	var client provider.Client

	if providerName != "" {
		c, ok := d.singleProvider(ctx, sink, chatID, providerName, event, opts)
		if c == nil {
			if !ok {
				return
			}
			d.sendError(ctx, sink, chatID, "Configuration error - contact administrator",
				telegram.SendOptions{ReplyTo: messageID})
			d.record(ctx, event, audit.StatusError)
			return
		}
		client = c
	} else {
		if !d.acl.Load(ctx).CanAccess(chatID, "", "") {
			slog.Warn("Unauthorized /reboot attempt", "chat_id", chatID)
			d.sendError(ctx, sink, chatID, accessDeniedText, telegram.SendOptions{ReplyTo: messageID})
			d.record(ctx, event, audit.StatusDenied)
			return
		}

		match := d.resolver.Resolve(ctx, chatID, serverName)
		if match == nil {
			providers := d.resolver.Providers(ctx, chatID)
			d.sendError(ctx, sink, chatID,
				fmt.Sprintf("Server `%s` not found on any provider (%s)", escaped, strings.Join(providers, ", ")), opts)
			d.record(ctx, event, audit.StatusOK)
			return
		}
		client = match.Client
		providerName = match.Provider
		event.Provider = providerName
	}

	// The acknowledgment and the result are independent sends; a lost
	// acknowledgment never cancels the reboot.
	d.send(ctx, sink, chatID, fmt.Sprintf("Rebooting `%s` on %s...", escaped, providerName), opts)

	if err := client.RebootServer(ctx, serverName); err != nil {
		slog.Error("Reboot failed",
			"chat_id", chatID, "provider", providerName, "server", serverName, "error", err)
		event.Error = err.Error()
		d.sendError(ctx, sink, chatID, rebootErrorMessage(serverName, err),
			telegram.SendOptions{ReplyTo: messageID})
		d.record(ctx, event, audit.StatusError)
		return
	}

	slog.Info("Successfully rebooted server",
		"chat_id", chatID, "provider", providerName, "server", serverName)
	d.sendSuccess(ctx, sink, chatID,
		fmt.Sprintf("Server `%s` is rebooting on %s", escaped, providerName), opts)
	d.record(ctx, event, audit.StatusOK)
}

func (d *Dispatcher) handleList(ctx context.Context, sink telegram.Sink, chatID int64, arg string, messageID int64) {
	opts := telegram.SendOptions{ParseMode: "Markdown", ReplyTo: messageID}
	providerName := strings.ToLower(strings.TrimSpace(arg))
	slog.Info("Handling /list command", "chat_id", chatID, "provider", providerName)

	event := audit.Event{ChatID: chatID, Command: "/list", Argument: arg, Provider: providerName}

	var providers []string
	if providerName != "" {
		if !d.registry.Known(providerName) {
			d.sendError(ctx, sink, chatID,
				fmt.Sprintf("Unknown provider `%s`. Available: %s",
					escapeMarkdown(providerName), strings.Join(d.registry.Names(), ", ")), opts)
			return
		}
		if !d.acl.Load(ctx).CanAccess(chatID, providerName, "") {
			slog.Warn("Unauthorized /list attempt", "chat_id", chatID, "provider", providerName)
			d.sendError(ctx, sink, chatID,
				fmt.Sprintf("Access denied for provider `%s`", escapeMarkdown(providerName)), opts)
			d.record(ctx, event, audit.StatusDenied)
			return
		}
		providers = []string{providerName}
	} else {
		if !d.acl.Load(ctx).CanAccess(chatID, "", "") {
			slog.Warn("Unauthorized /list attempt", "chat_id", chatID)
			d.sendError(ctx, sink, chatID, accessDeniedText, telegram.SendOptions{ReplyTo: messageID})
			d.record(ctx, event, audit.StatusDenied)
			return
		}
		providers = d.resolver.Providers(ctx, chatID)
	}

	// Per-provider failures are reported inline; one broken provider
	// never hides the others.
	var blocks []string
	for _, name := range providers {
		client, err := d.registry.New(ctx, name)
		if err == nil {
			var servers []provider.Server
			if servers, err = client.ListServers(ctx); err == nil {
				blocks = append(blocks, renderServerList(name, servers))
				continue
			}
		}
		slog.Warn("Unable to list servers", "provider", name, "error", err)
		blocks = append(blocks, fmt.Sprintf("*%s*: unable to fetch\n", escapeMarkdown(name)))
	}

	d.send(ctx, sink, chatID, strings.Join(blocks, "\n"), opts)
	d.record(ctx, event, audit.StatusOK)
}

// singleProvider validates an explicit provider reference and builds its
// client. A nil client with ok=false means the user was already answered
// (unknown name or denied); nil with ok=true is a construction failure
// the caller reports as a configuration error.
func (d *Dispatcher) singleProvider(ctx context.Context, sink telegram.Sink, chatID int64, providerName string, event audit.Event, opts telegram.SendOptions) (provider.Client, bool) {
	if !d.registry.Known(providerName) {
		d.sendError(ctx, sink, chatID,
			fmt.Sprintf("Unknown provider `%s`. Available: %s",
				escapeMarkdown(providerName), strings.Join(d.registry.Names(), ", ")), opts)
		return nil, false
	}

	if !d.acl.Load(ctx).CanAccess(chatID, providerName, "") {
		slog.Warn("Unauthorized provider access attempt",
			"chat_id", chatID, "provider", providerName)
		d.sendError(ctx, sink, chatID,
			fmt.Sprintf("Access denied for provider `%s`", escapeMarkdown(providerName)), opts)
		d.record(ctx, event, audit.StatusDenied)
		return nil, false
	}

	client, err := d.registry.New(ctx, providerName)
	if err != nil {
		slog.Error("Provider construction failed", "provider", providerName, "error", err)
		return nil, true
	}
	return client, true
}
