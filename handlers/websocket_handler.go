package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bracketops/bracket-console/brackets"
	"github.com/bracketops/bracket-console/services"
)

type WebSocketHandler struct {
	hub          *brackets.Hub
	refresher    *services.RefreshController
	tournamentID int
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewWebSocketHandler scopes viewer connections to the configured frontend
// origin; "*" keeps the upgrader open to any origin.
func NewWebSocketHandler(hub *brackets.Hub, refresher *services.RefreshController, tournamentID int, allowedOrigin string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:          hub,
		refresher:    refresher,
		tournamentID: tournamentID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "*" || r.Header.Get("Origin") == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ServeWs handles GET /ws/tournaments/{tournamentID}: upgrades the connection
// and joins the viewer to the tournament's snapshot room.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if id != h.tournamentID {
		notFoundResponse(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: services.RoomID(id),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	// New viewers get the current snapshot immediately instead of waiting for
	// the next refresh.
	if snapshot, ok := h.refresher.Current(); ok {
		event := brackets.Event{
			Type:    brackets.EventBracketSnapshot,
			Payload: snapshot,
			RoomID:  client.Room,
		}
		if payload, err := json.Marshal(event); err == nil {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}
