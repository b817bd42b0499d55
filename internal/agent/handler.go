package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the chat turn processor.
type Handler struct {
	processor TurnProcessor
	logger    *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(processor TurnProcessor, logger *logging.Logger) *Handler {
	if processor == nil {
		panic("agent: processor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		processor: processor,
		logger:    logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.Channel == "" {
		req.Channel = session.ChannelWeb
	}

	resp, err := h.processor.ProcessTurn(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			http.Error(w, "Session has expired; start a new conversation", http.StatusGone)
		case errors.Is(err, session.ErrSessionNotFound):
			http.Error(w, "Unknown session id", http.StatusNotFound)
		default:
			h.logger.Error("failed to process chat turn", "error", err)
			http.Error(w, "We hit a snag processing your message. Please try again, or call the front desk for immediate help.", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
