// Package webchat bridges browser WebSocket connections to the chat agent.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/lumenclinic/practice-ai-platform/internal/agent"
	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "session", "history", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history replay.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Handler manages web chat connections. Each socket maps to one chat
// session; turns run through the same processor as POST /chat.
type Handler struct {
	turns    agent.TurnProcessor
	sessions session.Store
	logger   *logging.Logger

	mu    sync.RWMutex
	conns map[string]*websocket.Conn // sessionID -> active connection
}

func NewHandler(turns agent.TurnProcessor, sessions session.Store, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("webchat: turn processor cannot be nil")
	}
	if sessions == nil {
		panic("webchat: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		turns:    turns,
		sessions: sessions,
		logger:   logger,
		conns:    make(map[string]*websocket.Conn),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	registered := ""
	defer func() {
		if registered != "" {
			h.deregister(registered, conn)
		}
	}()

	// A returning visitor gets their transcript replayed before new turns.
	if sessionID != "" {
		h.replayHistory(r.Context(), conn, sessionID)
		h.register(sessionID, conn)
		registered = sessionID
	}

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		resp, err := h.turns.ProcessTurn(r.Context(), agent.ChatRequest{
			Message:   msg.Text,
			SessionID: sessionID,
			Channel:   session.ChannelWeb,
		})
		if err != nil {
			h.sendTurnError(conn, sessionID, err)
			if errors.Is(err, session.ErrSessionExpired) {
				// Force a fresh session on the next turn.
				if registered != "" {
					h.deregister(registered, conn)
					registered = ""
				}
				sessionID = ""
			}
			continue
		}

		if resp.SessionID != sessionID {
			if registered != "" {
				h.deregister(registered, conn)
			}
			sessionID = resp.SessionID
			h.register(sessionID, conn)
			registered = sessionID
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      "assistant",
			Text:      resp.Response,
			SessionID: sessionID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *Handler) sendTurnError(conn *websocket.Conn, sessionID string, err error) {
	text := "Sorry, something went wrong. Please try again."
	if errors.Is(err, session.ErrSessionExpired) {
		text = "This conversation has expired. Please start a new one."
	}
	h.logger.Warn("webchat: turn failed", "error", err, "session_id", sessionID)
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: text})
}

func (h *Handler) replayHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil || len(sess.Messages) == 0 {
		return
	}
	history := make([]HistoryMessage, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", SessionID: sessionID, Messages: history})
}

func (h *Handler) register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[sessionID] = conn
	h.mu.Unlock()
}

// deregister drops the mapping unless a newer socket already replaced it.
func (h *Handler) deregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[sessionID]; ok && cur == conn {
		delete(h.conns, sessionID)
	}
	h.mu.Unlock()
}

// SendToSession pushes a message to an active socket, if one is connected.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	conn, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(conn, msg)
}

// HandleHistory is the HTTP fallback for transcript replay.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "unknown session id", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}
