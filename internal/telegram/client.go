// Package telegram is the outbound notification sink. It covers the two
// Bot API calls the dispatcher needs: sendMessage and setMyCommands.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// Error is a failed Bot API call. The description comes from the API
// response body when one was readable.
type Error struct {
	Op          string
	Status      int
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("telegram %s: %s", e.Op, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("telegram %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("telegram %s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// SendOptions tweaks a single message delivery.
type SendOptions struct {
	// ParseMode is the Telegram formatting mode ("Markdown", "HTML").
	// Empty means plain text.
	ParseMode string
	// ReplyTo makes the message a reply to the given message id.
	ReplyTo int64
}

// Sink is the notification capability the dispatcher renders into.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string, opts SendOptions) error
	// SetMyCommands publishes the command menu. Best effort: failures are
	// logged and reported, never escalated.
	SetMyCommands(ctx context.Context, commands []Command, scope *CommandScope) error
}

// Command is one entry of the bot command menu.
type Command struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// CommandScope narrows a command menu to a chat or chat class.
type CommandScope struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id,omitempty"`
}

// Client calls the Telegram Bot API over HTTP.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a Bot API client. baseURL is normally
// "https://api.telegram.org" and overridable for tests.
func NewClient(token, baseURL string, httpc *http.Client) *Client {
	return &Client{baseURL: baseURL, token: token, httpc: httpc}
}

func (c *Client) post(ctx context.Context, method string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: method, Err: err}
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return &Error{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Op: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}

	var apiErr struct {
		Description string `json:"description"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	json.Unmarshal(body, &apiErr)
	return &Error{Op: method, Status: resp.StatusCode, Description: apiErr.Description}
}

func (c *Client) Send(ctx context.Context, chatID int64, text string, opts SendOptions) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if opts.ParseMode != "" {
		payload["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyTo != 0 {
		payload["reply_parameters"] = map[string]int64{"message_id": opts.ReplyTo}
	}

	slog.Info("Sending message", "chat_id", chatID)
	if err := c.post(ctx, "sendMessage", payload); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

func (c *Client) SetMyCommands(ctx context.Context, commands []Command, scope *CommandScope) error {
	payload := map[string]interface{}{
		"commands":      commands,
		"language_code": "en",
	}
	if scope != nil {
		payload["scope"] = scope
	}

	if err := c.post(ctx, "setMyCommands", payload); err != nil {
		// Expected for chats that never messaged the bot.
		slog.Warn("Failed to set bot commands", "error", err)
		return err
	}
	slog.Info("Bot commands updated", "count", len(commands))
	return nil
}
