package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	observemetrics "github.com/lumenclinic/practice-ai-platform/internal/observability/metrics"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Handler streams analysis text over chunked HTTP.
type Handler struct {
	generator *Generator
	logger    *logging.Logger
	metrics   *observemetrics.PlatformMetrics
}

func NewHandler(generator *Generator, logger *logging.Logger) *Handler {
	if generator == nil {
		panic("analysis: generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{generator: generator, logger: logger}
}

// WithMetrics attaches request counters and returns the receiver.
func (h *Handler) WithMetrics(m *observemetrics.PlatformMetrics) *Handler {
	h.metrics = m
	return h
}

// Analyze handles POST /analyze. The response body is the raw analysis text,
// flushed chunk by chunk; X-Analysis-Mode discloses degraded mode.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode analysis request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stream, err := h.generator.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("analysis failed before streaming", "error", err)
		http.Error(w, "Analysis is unavailable right now. Please try again.", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveAnalysis(stream.Fallback)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if stream.Fallback {
		w.Header().Set("X-Analysis-Mode", "fallback")
	} else {
		w.Header().Set("X-Analysis-Mode", "generated")
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for chunk := range stream.Chunks {
		if _, err := w.Write([]byte(chunk)); err != nil {
			h.logger.Debug("client disconnected mid-analysis", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
