package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

type stubClassifier struct {
	result Classification
	err    error
}

func (s *stubClassifier) Classify(ctx context.Context, message string, sessionContext map[string]any) (Classification, error) {
	return s.result, s.err
}

func TestRouterScheduleEmitsActionNotExecution(t *testing.T) {
	router := NewRouter(NewKeywordClassifier(), logging.New("error"))

	result := router.Route(context.Background(), RouteInput{
		Message: "I need a cardiology appointment",
	})

	if len(result.Actions) != 1 || result.Actions[0] != "schedule" {
		t.Errorf("expected actions=[schedule], got %v", result.Actions)
	}
	if result.Context["serviceType"] != "cardiology" {
		t.Errorf("expected serviceType merged into context, got %v", result.Context["serviceType"])
	}
	if result.Response == "" {
		t.Error("expected a non-empty reply")
	}
}

func TestRouterPreservesExistingContext(t *testing.T) {
	router := NewRouter(NewKeywordClassifier(), logging.New("error"))

	result := router.Route(context.Background(), RouteInput{
		Message: "can you book me in?",
		Context: map[string]any{"patientName": "Sam Okafor"},
	})

	if result.Context["patientName"] != "Sam Okafor" {
		t.Errorf("expected prior context preserved, got %v", result.Context["patientName"])
	}
}

func TestRouterEligibilityRequiresAuth(t *testing.T) {
	router := NewRouter(NewKeywordClassifier(), logging.New("error"))

	result := router.Route(context.Background(), RouteInput{
		Message: "is my copay the same for a specialist?",
	})

	if !result.RequiresAuth {
		t.Error("expected eligibility inquiries to require auth")
	}
	if len(result.Actions) != 1 || result.Actions[0] != "check_eligibility" {
		t.Errorf("expected actions=[check_eligibility], got %v", result.Actions)
	}
}

func TestRouterDegradesOnClassifierFailure(t *testing.T) {
	router := NewRouter(&stubClassifier{err: errors.New("backend down")}, logging.New("error"))

	result := router.Route(context.Background(), RouteInput{Message: "hello"})

	if result.Confidence != 0 {
		t.Errorf("expected confidence 0 on degradation, got %d", result.Confidence)
	}
	if len(result.Actions) != 0 {
		t.Errorf("expected no actions on degradation, got %v", result.Actions)
	}
	if result.Response == "" {
		t.Error("expected an apologetic reply, got empty response")
	}
}

func TestRouterUrgentEscalates(t *testing.T) {
	router := NewRouter(NewKeywordClassifier(), logging.New("error"))

	result := router.Route(context.Background(), RouteInput{
		Message: "I need help right away, this is an emergency",
	})

	if len(result.Actions) != 1 || result.Actions[0] != "escalate" {
		t.Errorf("expected actions=[escalate], got %v", result.Actions)
	}
	if result.NextStep != "escalate_to_staff" {
		t.Errorf("expected escalate_to_staff next step, got %s", result.NextStep)
	}
}
