package claims

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the claim analyzer and tracker.
type Handler struct {
	analyzer *Analyzer
	tracker  *Tracker
	logger   *logging.Logger
}

func NewHandler(analyzer *Analyzer, tracker *Tracker, logger *logging.Logger) *Handler {
	if analyzer == nil {
		panic("claims: analyzer cannot be nil")
	}
	if tracker == nil {
		panic("claims: tracker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{analyzer: analyzer, tracker: tracker, logger: logger}
}

// Submit handles POST /claims: analyze then register for tracking.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode claim request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PatientID) == "" || len(req.ProcedureCodes) == 0 {
		http.Error(w, "patientId and procedureCodes are required", http.StatusBadRequest)
		return
	}

	analysis := h.analyzer.AnalyzeClaim(r.Context(), req)
	claim := h.tracker.Submit(r.Context(), req, analysis)

	h.writeJSON(w, http.StatusCreated, claim)
}

// Get handles GET /claims/{claimID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claim, err := h.tracker.Get(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		http.Error(w, "Unknown claim id", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, claim)
}

// Advance handles POST /claims/{claimID}/advance.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	claim, err := h.tracker.Advance(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrClaimNotFound):
			http.Error(w, "Unknown claim id", http.StatusNotFound)
		case errors.Is(err, ErrClaimFinal):
			http.Error(w, "Claim is already in a terminal status", http.StatusConflict)
		default:
			h.logger.Error("failed to advance claim", "error", err)
			http.Error(w, "Failed to advance claim", http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, claim)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
