package agent

import (
	"context"
	"fmt"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// RouteInput is one inbound turn plus whatever the session already knows.
type RouteInput struct {
	Message   string
	SessionID string
	Channel   session.Channel
	Context   map[string]any
}

// RouteResult is the router's verdict for one turn. Actions names the side
// effects the caller should drive next; the router itself performed none.
type RouteResult struct {
	Response     string         `json:"response"`
	Actions      []string       `json:"actions"`
	RequiresAuth bool           `json:"requiresAuth"`
	NextStep     string         `json:"nextStep,omitempty"`
	Confidence   int            `json:"confidence"`
	Context      map[string]any `json:"context"`
	Intent       Intent         `json:"intent"`
}

const fallbackReply = "I'm sorry, I'm having trouble understanding right now. " +
	"Please try again in a moment, or call the front desk and we'll help you directly."

// Router classifies one message and composes the reply plus next actions.
// Classifier failure degrades to a static apologetic reply; Route never
// returns an error.
type Router struct {
	classifier Classifier
	logger     *logging.Logger
}

func NewRouter(classifier Classifier, logger *logging.Logger) *Router {
	if classifier == nil {
		panic("agent: classifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{classifier: classifier, logger: logger}
}

func (r *Router) Route(ctx context.Context, in RouteInput) RouteResult {
	merged := make(map[string]any, len(in.Context))
	for k, v := range in.Context {
		merged[k] = v
	}

	cls, err := r.classifier.Classify(ctx, in.Message, merged)
	if err != nil {
		r.logger.Warn("intent classification failed, degrading to static reply",
			"session_id", in.SessionID, "error", err)
		return RouteResult{
			Response:   fallbackReply,
			Actions:    []string{},
			Confidence: 0,
			Context:    merged,
			Intent:     IntentGeneral,
		}
	}

	for k, v := range cls.Facts {
		merged[k] = v
	}

	result := RouteResult{
		Actions:    []string{},
		Confidence: cls.Confidence,
		Context:    merged,
		Intent:     cls.Intent,
	}

	serviceType, _ := merged["serviceType"].(string)

	switch cls.Intent {
	case IntentSchedule:
		result.Actions = append(result.Actions, "schedule")
		result.NextStep = "collect_scheduling_details"
		if serviceType != "" {
			result.Response = fmt.Sprintf("I can help you book a %s appointment. "+
				"Could you share your full name and any preferred day or time?", serviceType)
		} else {
			result.Response = "I can help you book an appointment. " +
				"What type of visit do you need, and do you have a preferred day or time?"
		}

	case IntentEligibility:
		result.Actions = append(result.Actions, "check_eligibility")
		result.RequiresAuth = true
		result.NextStep = "verify_patient_identity"
		if serviceType != "" {
			result.Response = fmt.Sprintf("I can check your coverage for %s. "+
				"To look that up I'll need to verify your identity first.", serviceType)
		} else {
			result.Response = "I can check your insurance coverage. " +
				"Which service would you like me to verify, and may I confirm your identity?"
		}

	case IntentReschedule:
		result.Actions = append(result.Actions, "reschedule")
		result.RequiresAuth = true
		result.NextStep = "locate_existing_appointment"
		result.Response = "I can help you reschedule. " +
			"Could you confirm the name and date of the appointment you'd like to move?"

	case IntentUrgent:
		result.Actions = append(result.Actions, "escalate")
		result.NextStep = "escalate_to_staff"
		result.Response = "If this is a medical emergency, please call 911 now. " +
			"Otherwise I'm flagging your message for our staff, and someone will reach out to you right away."

	default:
		result.Response = "Thanks for reaching out! I can help you book appointments, " +
			"check insurance coverage, or answer questions about the practice. What can I do for you?"
	}

	return result
}
