package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"vpsbot/internal/audit"
	errs "vpsbot/internal/errors"
)

// AdminAudit streams the audit trail over a websocket for live tailing.
// Guarded by the static admin token; disabled entirely when no token is
// configured.
type AdminAudit struct {
	token        string
	audit        audit.Logger
	upgrader     websocket.Upgrader
	pollInterval time.Duration
}

func NewAdminAudit(token string, log audit.Logger) *AdminAudit {
	return &AdminAudit{
		token: token,
		audit: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pollInterval: 2 * time.Second,
	}
}

func (h *AdminAudit) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	if r.Header.Get("Authorization") == "Bearer "+h.token {
		return true
	}
	// Browser websocket clients cannot set headers.
	return r.URL.Query().Get("token") == h.token
}

func (h *AdminAudit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		errs.ErrUnauthorized.WriteResponse(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Audit websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("Audit tail connected", "remote", r.RemoteAddr)

	ctx := r.Context()
	var last time.Time

	// flush sends everything newer than the last delivered event, oldest
	// first. Query results arrive reverse-chronological.
	flush := func() bool {
		events, err := h.audit.Query(ctx, audit.QueryOpts{Start: last, Limit: 50})
		if err != nil {
			slog.Warn("Audit tail query failed", "error", err)
			return true
		}
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			if !ev.Timestamp.After(last) {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				return false
			}
			last = ev.Timestamp
		}
		return true
	}

	if !flush() {
		return
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !flush() {
				slog.Info("Audit tail disconnected", "remote", r.RemoteAddr)
				return
			}
		}
	}
}
