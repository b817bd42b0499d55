package eligibility

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the checker.
type Handler struct {
	checker *Checker
	logger  *logging.Logger
}

func NewHandler(checker *Checker, logger *logging.Logger) *Handler {
	if checker == nil {
		panic("eligibility: checker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{checker: checker, logger: logger}
}

type checkRequest struct {
	PatientID   string `json:"patientId"`
	ServiceType string `json:"serviceType"`
}

type checkResponse struct {
	Eligibility Result `json:"eligibility"`
}

// Check handles POST /eligibility.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode eligibility request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.checker.Check(r.Context(), req.PatientID, req.ServiceType)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("eligibility check failed unexpectedly", "error", err)
		http.Error(w, "Eligibility check failed. Please try again.", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, checkResponse{Eligibility: result})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
