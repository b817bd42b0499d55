package agent

import (
	"context"
	"fmt"
	"time"

	observemetrics "github.com/lumenclinic/practice-ai-platform/internal/observability/metrics"
	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// ChatRequest is one inbound chat turn from any channel.
type ChatRequest struct {
	Message     string          `json:"message"`
	SessionID   string          `json:"sessionId,omitempty"`
	Channel     session.Channel `json:"channel"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
	Email       string          `json:"email,omitempty"`
}

// ChatResponse is the chat envelope returned for one turn.
type ChatResponse struct {
	SessionID    string         `json:"sessionId"`
	Response     string         `json:"response"`
	Actions      []string       `json:"actions"`
	RequiresAuth bool           `json:"requiresAuth"`
	NextStep     string         `json:"nextStep,omitempty"`
	Confidence   int            `json:"confidence"`
	Context      map[string]any `json:"context"`
}

// TurnProcessor handles one complete chat turn.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Service is the chat turn engine: it owns session bookkeeping around the
// router. One Service instance is shared across all sessions; the session
// store serializes writes per session.
type Service struct {
	store   session.Store
	router  *Router
	logger  *logging.Logger
	metrics *observemetrics.PlatformMetrics
}

func NewService(store session.Store, router *Router, logger *logging.Logger) *Service {
	if store == nil {
		panic("agent: session store cannot be nil")
	}
	if router == nil {
		panic("agent: router cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, router: router, logger: logger}
}

// WithMetrics attaches turn counters and returns the receiver.
func (s *Service) WithMetrics(m *observemetrics.PlatformMetrics) *Service {
	s.metrics = m
	return s
}

// ProcessTurn loads or creates the session, routes the message, and records
// both sides of the exchange. Session errors (expired, unknown id) propagate
// to the caller; routing failures never do.
func (s *Service) ProcessTurn(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, intent, err := s.processTurn(ctx, req)
	if err != nil {
		s.metrics.ObserveChatTurn("unknown", "error", time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.ObserveChatTurn(string(intent), "ok", time.Since(start).Seconds())
	return resp, nil
}

func (s *Service) processTurn(ctx context.Context, req ChatRequest) (*ChatResponse, Intent, error) {
	sess, err := s.store.GetOrCreate(ctx, req.SessionID, session.NewSessionParams{
		Channel: req.Channel,
		Phone:   req.PhoneNumber,
		Email:   req.Email,
	})
	if err != nil {
		return nil, "", err
	}

	if err := s.store.AppendMessage(ctx, sess.ID, session.Message{
		Role:    "user",
		Content: req.Message,
	}); err != nil {
		return nil, "", fmt.Errorf("agent: failed to record inbound message: %w", err)
	}

	result := s.router.Route(ctx, RouteInput{
		Message:   req.Message,
		SessionID: sess.ID,
		Channel:   sess.Channel,
		Context:   sess.Context,
	})

	if err := s.store.AppendAudit(ctx, sess.ID, "intent_classified", string(result.Intent), map[string]any{
		"confidence": result.Confidence,
		"actions":    result.Actions,
	}); err != nil {
		return nil, "", fmt.Errorf("agent: failed to record audit entry: %w", err)
	}

	if len(result.Context) > 0 {
		if err := s.store.MergeContext(ctx, sess.ID, result.Context); err != nil {
			return nil, "", fmt.Errorf("agent: failed to merge session context: %w", err)
		}
	}

	if err := s.store.AppendMessage(ctx, sess.ID, session.Message{
		Role:    "assistant",
		Content: result.Response,
	}); err != nil {
		return nil, "", fmt.Errorf("agent: failed to record reply: %w", err)
	}

	if err := s.store.Touch(ctx, sess.ID); err != nil {
		s.logger.Warn("failed to touch session after turn", "session_id", sess.ID, "error", err)
	}

	return &ChatResponse{
		SessionID:    sess.ID,
		Response:     result.Response,
		Actions:      result.Actions,
		RequiresAuth: result.RequiresAuth,
		NextStep:     result.NextStep,
		Confidence:   result.Confidence,
		Context:      result.Context,
	}, result.Intent, nil
}
