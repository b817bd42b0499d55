package workflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the workflow runner.
type Handler struct {
	runner   *Runner
	sessions session.Store
	logger   *logging.Logger
}

func NewHandler(runner *Runner, sessions session.Store, logger *logging.Logger) *Handler {
	if runner == nil {
		panic("workflow: runner cannot be nil")
	}
	if sessions == nil {
		panic("workflow: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{runner: runner, sessions: sessions, logger: logger}
}

// Schedule handles POST /schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode schedule request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The session must exist before anything side-effecting runs.
	sess, err := h.sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		http.Error(w, "Unknown session id", http.StatusNotFound)
		return
	}
	if sess.Status == session.StatusExpired {
		http.Error(w, "Session has expired; start a new conversation", http.StatusGone)
		return
	}

	result, err := h.runner.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("scheduling run failed unexpectedly", "session_id", req.SessionID, "error", err)
		http.Error(w, "We couldn't complete the scheduling request. Please try again, or call the front desk.", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
