package audit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

type trailResponse struct {
	SessionID string  `json:"sessionId"`
	Source    string  `json:"source"` // live or durable
	Entries   []Entry `json:"entries"`
}

// Handler serves the audit trail for a session: the live session first, the
// durable mirror when the session is no longer held in the store.
type Handler struct {
	sessions session.Store
	durable  *Store
	logger   *logging.Logger
}

func NewHandler(sessions session.Store, durable *Store, logger *logging.Logger) *Handler {
	if sessions == nil {
		panic("audit: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sessions: sessions, durable: durable, logger: logger}
}

// Trail handles GET /audit/{sessionID}.
func (h *Handler) Trail(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err == nil {
		entries := make([]Entry, 0, len(sess.Audit))
		for _, a := range sess.Audit {
			entries = append(entries, Entry{
				ID:        a.ID,
				Event:     a.Event,
				Detail:    a.Detail,
				Data:      a.Data,
				Timestamp: a.Timestamp,
			})
		}
		h.writeJSON(w, http.StatusOK, trailResponse{SessionID: sessionID, Source: "live", Entries: entries})
		return
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		h.logger.Error("failed to load session for audit read", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load audit trail", http.StatusInternalServerError)
		return
	}

	if h.durable == nil {
		http.Error(w, "Unknown session id", http.StatusNotFound)
		return
	}
	entries, err := h.durable.BySession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to read durable audit trail", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load audit trail", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "Unknown session id", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, trailResponse{SessionID: sessionID, Source: "durable", Entries: entries})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
