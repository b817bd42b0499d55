// Package router wires the HTTP surface of the practice platform.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumenclinic/practice-ai-platform/internal/agent"
	"github.com/lumenclinic/practice-ai-platform/internal/analysis"
	"github.com/lumenclinic/practice-ai-platform/internal/audit"
	"github.com/lumenclinic/practice-ai-platform/internal/claims"
	"github.com/lumenclinic/practice-ai-platform/internal/eligibility"
	httpmiddleware "github.com/lumenclinic/practice-ai-platform/internal/http/middleware"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
	"github.com/lumenclinic/practice-ai-platform/internal/webchat"
	"github.com/lumenclinic/practice-ai-platform/internal/workflow"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *agent.Handler
	EligibilityHandler *eligibility.Handler
	SlotsHandler       *slots.Handler
	ScheduleHandler    *workflow.Handler
	AnalysisHandler    *analysis.Handler
	ClaimsHandler      *claims.Handler
	AuditHandler       *audit.Handler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// Requests/sec and burst for the chat endpoints. Zero disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WebchatHandler != nil {
			public.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			public.Get("/chat/history", cfg.WebchatHandler.HandleHistory)
		}
	})

	// Conversational and scheduling API
	r.Group(func(api chi.Router) {
		if cfg.ChatRateLimit > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
		}
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Chat)
		}
		if cfg.EligibilityHandler != nil {
			api.Post("/eligibility", cfg.EligibilityHandler.Check)
		}
		if cfg.ScheduleHandler != nil {
			api.Post("/schedule", cfg.ScheduleHandler.Schedule)
		}
		if cfg.SlotsHandler != nil {
			api.Get("/slots", cfg.SlotsHandler.List)
		}
		if cfg.AnalysisHandler != nil {
			api.Post("/analyze", cfg.AnalysisHandler.Analyze)
		}
		if cfg.ClaimsHandler != nil {
			api.Route("/claims", func(r chi.Router) {
				r.Post("/", cfg.ClaimsHandler.Submit)
				r.Get("/{claimID}", cfg.ClaimsHandler.Get)
				r.Post("/{claimID}/advance", cfg.ClaimsHandler.Advance)
			})
		}
	})

	// Admin routes (JWT-protected)
	if cfg.AdminAuthSecret != "" && cfg.AuditHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/audit/{sessionID}", cfg.AuditHandler.Trail)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
