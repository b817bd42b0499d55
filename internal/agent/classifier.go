// Package agent turns free-text patient messages into a bounded set of
// next actions. The router never executes side effects itself; it emits
// action names for the workflow layer.
package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lumenclinic/practice-ai-platform/internal/llm"
)

// Intent is the routed meaning of one inbound message.
type Intent string

const (
	IntentSchedule    Intent = "schedule"
	IntentEligibility Intent = "eligibility"
	IntentReschedule  Intent = "reschedule"
	IntentUrgent      Intent = "urgent"
	IntentGeneral     Intent = "general"
)

// Classification is one classifier verdict. Facts carries anything extracted
// from the message worth merging into session context: serviceType,
// patientName, urgency.
type Classification struct {
	Intent     Intent
	Confidence int // 0..100
	Facts      map[string]any
}

// Classifier decides the intent of one message given accumulated session
// context.
type Classifier interface {
	Classify(ctx context.Context, message string, sessionContext map[string]any) (Classification, error)
}

// serviceTypes lists the service vocabulary the keyword pass recognizes.
// Specialty names double as service types for scheduling purposes.
var serviceTypes = []string{
	"cardiology",
	"dermatology",
	"pediatrics",
	"orthopedics",
	"neurology",
	"radiology",
	"physical therapy",
	"lab work",
	"cleaning",
	"checkup",
	"consultation",
	"vaccination",
	"x-ray",
}

var (
	urgentKeywords      = []string{"urgent", "emergency", "asap", "right away", "immediately", "severe pain", "can't wait"}
	rescheduleKeywords  = []string{"reschedule", "change my appointment", "move my appointment", "different time", "push back my"}
	eligibilityKeywords = []string{"covered", "coverage", "insurance", "copay", "co-pay", "deductible", "eligib", "in network", "in-network", "prior auth"}
	scheduleKeywords    = []string{"appointment", "schedule", "book", "see a doctor", "see the doctor", "come in", "visit", "checkup", "available"}

	nameRe = regexp.MustCompile(`(?i)\b(?:my name is|this is|i am|i'm)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

// KeywordClassifier is the heuristic first pass. It is deterministic, cheap,
// and handles the common phrasings without a model call.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(ctx context.Context, message string, sessionContext map[string]any) (Classification, error) {
	lower := strings.ToLower(message)
	facts := extractFacts(message, lower)

	switch {
	case containsAny(lower, urgentKeywords):
		facts["urgency"] = "urgent"
		return Classification{Intent: IntentUrgent, Confidence: 90, Facts: facts}, nil
	case containsAny(lower, rescheduleKeywords):
		return Classification{Intent: IntentReschedule, Confidence: 85, Facts: facts}, nil
	case containsAny(lower, eligibilityKeywords):
		return Classification{Intent: IntentEligibility, Confidence: 85, Facts: facts}, nil
	case containsAny(lower, scheduleKeywords):
		return Classification{Intent: IntentSchedule, Confidence: 85, Facts: facts}, nil
	case facts["serviceType"] != nil:
		// Naming a service with no other signal still reads as a booking ask.
		return Classification{Intent: IntentSchedule, Confidence: 70, Facts: facts}, nil
	}

	return Classification{Intent: IntentGeneral, Confidence: 0, Facts: facts}, nil
}

func extractFacts(message, lower string) map[string]any {
	facts := make(map[string]any)
	for _, svc := range serviceTypes {
		if strings.Contains(lower, svc) {
			facts["serviceType"] = svc
			break
		}
	}
	if m := nameRe.FindStringSubmatch(message); m != nil {
		facts["patientName"] = m[1]
	}
	return facts
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

const intentClassifierPrompt = `Classify this patient message for a medical practice into ONE intent. Respond with JSON only.

Intents:
- schedule: Wants to book a new appointment or asks about availability
- eligibility: Asks whether a service is covered by insurance, or about copay/deductible/authorization
- reschedule: Wants to change or cancel an existing appointment
- urgent: Describes an urgent or emergency situation needing immediate attention
- general: Anything else (greetings, questions about the practice, unrelated)

Also extract, when present: the service or specialty mentioned (serviceType), the patient's stated name (patientName), and urgency ("routine", "urgent", or "stat").

Message: %s

Respond with: {"intent": "<intent>", "serviceType": "<service or empty>", "patientName": "<name or empty>", "urgency": "<urgency or empty>", "confidence": <0-100>}`

// LLMClassifier asks the generative backend to classify open-ended phrasing
// the keyword pass could not place.
type LLMClassifier struct {
	client  llm.LLMClient
	modelID string
}

func NewLLMClassifier(client llm.LLMClient, modelID string) *LLMClassifier {
	if client == nil {
		panic("agent: llm client cannot be nil")
	}
	return &LLMClassifier{client: client, modelID: modelID}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, sessionContext map[string]any) (Classification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Classification{Intent: IntentGeneral, Facts: map[string]any{}}, nil
	}

	prompt := strings.Replace(intentClassifierPrompt, "%s", message, 1)

	resp, err := c.client.Complete(ctx, llm.LLMRequest{
		Model:       c.modelID,
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens:   150,
		Temperature: 0,
	})
	if err != nil {
		return Classification{}, err
	}

	var result struct {
		Intent      string `json:"intent"`
		ServiceType string `json:"serviceType"`
		PatientName string `json:"patientName"`
		Urgency     string `json:"urgency"`
		Confidence  int    `json:"confidence"`
	}

	// The model may wrap the JSON in prose; take the outermost object.
	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Classification{Intent: IntentGeneral, Confidence: 0, Facts: map[string]any{}}, nil
	}

	intent := Intent(result.Intent)
	switch intent {
	case IntentSchedule, IntentEligibility, IntentReschedule, IntentUrgent, IntentGeneral:
	default:
		intent = IntentGeneral
	}

	confidence := result.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	facts := make(map[string]any)
	if s := strings.TrimSpace(result.ServiceType); s != "" {
		facts["serviceType"] = strings.ToLower(s)
	}
	if n := strings.TrimSpace(result.PatientName); n != "" {
		facts["patientName"] = n
	}
	if u := strings.TrimSpace(result.Urgency); u != "" {
		facts["urgency"] = strings.ToLower(u)
	}

	return Classification{Intent: intent, Confidence: confidence, Facts: facts}, nil
}

// LayeredClassifier runs the keyword pass first and only pays for a model
// call when the heuristics come up empty.
type LayeredClassifier struct {
	keywords Classifier
	model    Classifier
}

func NewLayeredClassifier(keywords, model Classifier) *LayeredClassifier {
	if keywords == nil {
		panic("agent: keyword classifier cannot be nil")
	}
	return &LayeredClassifier{keywords: keywords, model: model}
}

func (c *LayeredClassifier) Classify(ctx context.Context, message string, sessionContext map[string]any) (Classification, error) {
	kw, err := c.keywords.Classify(ctx, message, sessionContext)
	if err == nil && kw.Intent != IntentGeneral {
		return kw, nil
	}
	if c.model == nil {
		return kw, err
	}

	modelResult, modelErr := c.model.Classify(ctx, message, sessionContext)
	if modelErr != nil {
		return Classification{}, modelErr
	}
	// Keyword facts survive even when the model supplies the intent.
	for k, v := range kw.Facts {
		if _, ok := modelResult.Facts[k]; !ok {
			if modelResult.Facts == nil {
				modelResult.Facts = make(map[string]any)
			}
			modelResult.Facts[k] = v
		}
	}
	return modelResult, nil
}
