// Package workflow sequences eligibility, slot search, and booking into an
// auditable multi-step scheduling run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumenclinic/practice-ai-platform/internal/eligibility"
	observemetrics "github.com/lumenclinic/practice-ai-platform/internal/observability/metrics"
	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// StepStatus is the lifecycle of one workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Step names, in their fixed execution order.
const (
	StepCheckEligibility = "check_eligibility"
	StepFindSlots        = "find_slots"
	StepBookAppointment  = "book_appointment"
	StepConfirm          = "confirm"
)

var stepOrder = []string{StepCheckEligibility, StepFindSlots, StepBookAppointment, StepConfirm}

// Step is one entry in a run's step sequence. A step transitions
// pending → in_progress → {completed | failed} exactly once; a failed step is
// terminal for the run and every later step stays pending.
type Step struct {
	Step      string         `json:"step"`
	Status    StepStatus     `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Urgency levels accepted on a scheduling request.
const (
	UrgencyRoutine = "routine"
	UrgencyUrgent  = "urgent"
	UrgencyStat    = "stat"
)

// ErrInvalidRequest indicates a malformed scheduling request. Nothing was
// attempted.
var ErrInvalidRequest = errors.New("workflow: session id, patient name, and service type are required")

// Request is one scheduling ask.
type Request struct {
	SessionID         string `json:"sessionId"`
	PatientID         string `json:"patientId,omitempty"`
	PatientName       string `json:"patientName"`
	ServiceType       string `json:"serviceType"`
	Specialty         string `json:"specialty,omitempty"`
	Urgency           string `json:"urgency,omitempty"`
	PreferredLocation string `json:"preferredLocation,omitempty"`
	PreferredProvider string `json:"preferredProvider,omitempty"`
}

// Result is the outcome of one run. Steps always carries all four steps so
// callers can render exactly where a failed run stopped.
type Result struct {
	Success       bool   `json:"success"`
	Steps         []Step `json:"steps"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

// BookingDetails is handed to the notifier after a confirmed booking.
type BookingDetails struct {
	AppointmentID string
	PatientName   string
	ServiceType   string
	Slot          slots.Slot
	Email         string
	Phone         string
}

// Notifier delivers the booking confirmation. Failures are logged, never
// surfaced: the booking already committed.
type Notifier interface {
	AppointmentBooked(ctx context.Context, details BookingDetails) error
}

// Runner executes scheduling runs. One Runner is shared across sessions;
// per-run state lives on the stack.
type Runner struct {
	checker  *eligibility.Checker
	pool     slots.Pool
	sessions session.Store
	notifier Notifier
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *observemetrics.PlatformMetrics
	clock    func() time.Time
}

func NewRunner(checker *eligibility.Checker, pool slots.Pool, sessions session.Store, notifier Notifier, logger *logging.Logger) *Runner {
	if checker == nil {
		panic("workflow: eligibility checker cannot be nil")
	}
	if pool == nil {
		panic("workflow: slot pool cannot be nil")
	}
	if sessions == nil {
		panic("workflow: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		checker:  checker,
		pool:     pool,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("practice.internal.workflow"),
		clock:    time.Now,
	}
}

// WithMetrics attaches run counters and returns the receiver.
func (r *Runner) WithMetrics(m *observemetrics.PlatformMetrics) *Runner {
	r.metrics = m
	return r
}

// run tracks one execution's step sequence.
type run struct {
	steps map[string]*Step
}

func newRun(now time.Time) *run {
	r := &run{steps: make(map[string]*Step, len(stepOrder))}
	for _, name := range stepOrder {
		r.steps[name] = &Step{Step: name, Status: StepPending, Timestamp: now}
	}
	return r
}

func (r *run) list() []Step {
	out := make([]Step, 0, len(stepOrder))
	for _, name := range stepOrder {
		out = append(out, *r.steps[name])
	}
	return out
}

// Execute runs the fixed step sequence for one scheduling request. The run
// is driven by its own detached context once booking starts, so a client
// disconnect can never leave a step stuck in in_progress.
func (r *Runner) Execute(ctx context.Context, req Request) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "workflow.schedule")
	defer span.End()

	if strings.TrimSpace(req.SessionID) == "" ||
		strings.TrimSpace(req.PatientName) == "" ||
		strings.TrimSpace(req.ServiceType) == "" {
		return Result{}, ErrInvalidRequest
	}
	switch req.Urgency {
	case "", UrgencyRoutine, UrgencyUrgent, UrgencyStat:
	default:
		return Result{}, fmt.Errorf("%w: unknown urgency %q", ErrInvalidRequest, req.Urgency)
	}

	state := newRun(r.clock().UTC())
	r.audit(ctx, req.SessionID, "workflow_started", "", map[string]any{
		"serviceType": req.ServiceType,
		"urgency":     req.Urgency,
	})

	// Step 1: check_eligibility.
	r.begin(ctx, req.SessionID, state, StepCheckEligibility)
	patientID := req.PatientID
	if patientID == "" {
		patientID = req.PatientName
	}
	verdict, err := r.checker.Check(ctx, patientID, req.ServiceType)
	if err != nil {
		r.fail(ctx, req.SessionID, state, StepCheckEligibility, err.Error())
		return Result{Steps: state.list()}, nil
	}
	if !verdict.IsEligible {
		reason := "patient is not eligible for this service"
		if len(verdict.Errors) > 0 {
			reason = strings.Join(verdict.Errors, "; ")
		}
		r.failWithData(ctx, req.SessionID, state, StepCheckEligibility, reason, map[string]any{
			"eligibility": verdict,
		})
		return Result{Steps: state.list()}, nil
	}
	r.complete(ctx, req.SessionID, state, StepCheckEligibility, map[string]any{
		"eligibility": verdict,
	})

	// Step 2: find_slots.
	r.begin(ctx, req.SessionID, state, StepFindSlots)
	available, err := r.pool.Query(ctx, slots.Filter{
		ServiceType: req.ServiceType,
		Specialty:   req.Specialty,
		LocationID:  req.PreferredLocation,
		ProviderID:  req.PreferredProvider,
	})
	if err != nil {
		r.fail(ctx, req.SessionID, state, StepFindSlots, fmt.Sprintf("slot pool unavailable: %v", err))
		return Result{Steps: state.list()}, nil
	}
	if len(available) == 0 {
		r.fail(ctx, req.SessionID, state, StepFindSlots, "no matching slots")
		return Result{Steps: state.list()}, nil
	}
	chosen := available[0]
	r.complete(ctx, req.SessionID, state, StepFindSlots, map[string]any{
		"slotCount":  len(available),
		"chosenSlot": chosen.ID,
	})

	// Step 3: book_appointment. The booking transition runs on a detached
	// context so a client disconnect cannot abandon it between the pool's
	// commit and the step resolution.
	r.begin(ctx, req.SessionID, state, StepBookAppointment)
	bookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.pool.Book(bookCtx, chosen.ID); err != nil {
		if errors.Is(err, slots.ErrSlotConflict) {
			// No automatic fallback to another slot: silent re-selection
			// could violate the patient's stated constraints.
			r.metrics.ObserveBookingAttempt("conflict")
			r.fail(bookCtx, req.SessionID, state, StepBookAppointment,
				fmt.Sprintf("slot %s was booked by another request", chosen.ID))
		} else {
			r.metrics.ObserveBookingAttempt("error")
			r.fail(bookCtx, req.SessionID, state, StepBookAppointment, err.Error())
		}
		return Result{Steps: state.list()}, nil
	}
	r.metrics.ObserveBookingAttempt("booked")
	appointmentID := uuid.NewString()
	r.complete(bookCtx, req.SessionID, state, StepBookAppointment, map[string]any{
		"appointmentId": appointmentID,
		"slotId":        chosen.ID,
	})

	// Step 4: confirm.
	r.begin(bookCtx, req.SessionID, state, StepConfirm)
	r.notify(bookCtx, req, appointmentID, chosen)
	r.complete(bookCtx, req.SessionID, state, StepConfirm, map[string]any{
		"appointmentId": appointmentID,
		"provider":      chosen.ProviderName,
		"date":          chosen.Date,
		"startTime":     chosen.StartTime,
	})

	r.metrics.ObserveWorkflowRun("success", "")
	return Result{
		Success:       true,
		Steps:         state.list(),
		AppointmentID: appointmentID,
	}, nil
}

func (r *Runner) notify(ctx context.Context, req Request, appointmentID string, slot slots.Slot) {
	if r.notifier == nil {
		return
	}

	var email, phone string
	if sess, err := r.sessions.Get(ctx, req.SessionID); err == nil {
		email = sess.Email
		phone = sess.Phone
	}

	err := r.notifier.AppointmentBooked(ctx, BookingDetails{
		AppointmentID: appointmentID,
		PatientName:   req.PatientName,
		ServiceType:   req.ServiceType,
		Slot:          slot,
		Email:         email,
		Phone:         phone,
	})
	if err != nil {
		r.logger.Error("booking confirmation notification failed",
			"appointment_id", appointmentID, "error", err)
	}
}

func (r *Runner) begin(ctx context.Context, sessionID string, state *run, name string) {
	step := state.steps[name]
	step.Status = StepInProgress
	step.Timestamp = r.clock().UTC()
	r.audit(ctx, sessionID, "workflow_step", name+":in_progress", nil)
}

func (r *Runner) complete(ctx context.Context, sessionID string, state *run, name string, data map[string]any) {
	step := state.steps[name]
	step.Status = StepCompleted
	step.Data = data
	step.Timestamp = r.clock().UTC()
	r.audit(ctx, sessionID, "workflow_step", name+":completed", data)
}

func (r *Runner) fail(ctx context.Context, sessionID string, state *run, name, reason string) {
	r.failWithData(ctx, sessionID, state, name, reason, nil)
}

func (r *Runner) failWithData(ctx context.Context, sessionID string, state *run, name, reason string, data map[string]any) {
	step := state.steps[name]
	step.Status = StepFailed
	step.Error = reason
	step.Data = data
	step.Timestamp = r.clock().UTC()
	r.audit(ctx, sessionID, "workflow_step", name+":failed", map[string]any{"error": reason})
	r.metrics.ObserveWorkflowRun("failed", name)
}

// audit appends to the session's trail. A run keeps going even if the
// session expired mid-flight; only new inbound messages are rejected then.
func (r *Runner) audit(ctx context.Context, sessionID, event, detail string, data map[string]any) {
	if err := r.sessions.AppendAudit(ctx, sessionID, event, detail, data); err != nil {
		r.logger.Warn("workflow audit append failed",
			"session_id", sessionID, "event", event, "error", err)
	}
}
