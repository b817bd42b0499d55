package slots

import (
	"encoding/json"
	"net/http"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the slot pool.
type Handler struct {
	pool   Pool
	logger *logging.Logger
}

func NewHandler(pool Pool, logger *logging.Logger) *Handler {
	if pool == nil {
		panic("slots: pool cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pool: pool, logger: logger}
}

type listResponse struct {
	Slots []Slot `json:"slots"`
}

// List handles GET /slots.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		ServiceType: q.Get("serviceType"),
		Specialty:   q.Get("specialty"),
		LocationID:  q.Get("location"),
		ProviderID:  q.Get("provider"),
	}

	available, err := h.pool.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("slot query failed", "error", err)
		http.Error(w, "Slot lookup failed. Please try again.", http.StatusInternalServerError)
		return
	}
	if available == nil {
		available = []Slot{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(listResponse{Slots: available}); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
