package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	errs "vpsbot/internal/errors"
	"vpsbot/internal/metrics"
	"vpsbot/internal/telegram"
)

// Update is the subset of a Telegram update the bot reacts to.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// SinkFactory builds the notification sink for a request. The bot token
// lives in secret storage, so construction can fail; that failure is a
// configuration error, not a client error.
type SinkFactory func(ctx context.Context) (telegram.Sink, error)

// Webhook is the inbound HTTP surface. Telegram retries deliveries that
// do not get a 2xx, so everything the bot chooses to skip is still
// acknowledged with a 200.
type Webhook struct {
	sink       SinkFactory
	dispatcher *Dispatcher
}

func NewWebhook(sink SinkFactory, d *Dispatcher) *Webhook {
	return &Webhook{sink: sink, dispatcher: d}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sink, err := h.sink(ctx)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		metrics.WebhookRequests.WithLabelValues("config_error").Inc()
		errs.ErrConfiguration.WriteResponse(w)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Error("Failed to parse update", "error", err)
		metrics.WebhookRequests.WithLabelValues("invalid").Inc()
		errs.ErrInvalidRequest.WriteResponse(w)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat.ID == 0 || msg.Text == "" {
		slog.Warn("No message in update - ignoring")
		metrics.WebhookRequests.WithLabelValues("ignored").Inc()
		writeStatus(w, "ignored")
		return
	}

	slog.Info("Processing message", "chat_id", msg.Chat.ID, "update_id", update.UpdateID)
	h.dispatcher.Dispatch(ctx, sink, msg.Chat.ID, msg.Text, msg.MessageID)

	metrics.WebhookRequests.WithLabelValues("ok").Inc()
	writeStatus(w, "ok")
}

func writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
