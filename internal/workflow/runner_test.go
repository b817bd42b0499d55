package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lumenclinic/practice-ai-platform/internal/eligibility"
	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

type failingCoverage struct{}

func (failingCoverage) Lookup(ctx context.Context, patientID, serviceType string) (*eligibility.Coverage, error) {
	return nil, errors.New("clearinghouse timeout")
}

func coveredSource(patientID, serviceType string) *eligibility.StaticCoverageSource {
	src := eligibility.NewStaticCoverageSource()
	src.Put(patientID, serviceType, eligibility.Coverage{
		PlanName:   "Lumen PPO",
		CopayCents: 2500,
	})
	return src
}

func testSlots() []slots.Slot {
	return []slots.Slot{
		{
			ID: "slot-2", ProviderID: "prov-b", ProviderName: "Dr. Okafor",
			LocationID: "loc-1", ServiceType: "cardiology",
			Date: "2026-09-03", StartTime: "14:00", EndTime: "14:30",
			DurationMins: 30, Status: slots.StatusAvailable,
		},
		{
			ID: "slot-1", ProviderID: "prov-a", ProviderName: "Dr. Chen",
			LocationID: "loc-1", ServiceType: "cardiology",
			Date: "2026-09-02", StartTime: "09:00", EndTime: "09:30",
			DurationMins: 30, Status: slots.StatusAvailable,
		},
	}
}

type testEnv struct {
	runner *Runner
	store  *session.MemoryStore
	pool   *slots.MemoryPool
	sessID string
}

func newTestEnv(t *testing.T, source eligibility.CoverageSource, seed []slots.Slot) *testEnv {
	t.Helper()
	store := session.NewMemoryStore()
	sess, err := store.GetOrCreate(context.Background(), "", session.NewSessionParams{
		SessionType: session.TypeScheduling,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	pool := slots.NewMemoryPool(seed)
	checker := eligibility.NewChecker(source, logging.New("error"))
	runner := NewRunner(checker, pool, store, nil, logging.New("error"))
	return &testEnv{runner: runner, store: store, pool: pool, sessID: sess.ID}
}

func stepByName(t *testing.T, steps []Step, name string) Step {
	t.Helper()
	for _, s := range steps {
		if s.Step == name {
			return s
		}
	}
	t.Fatalf("step %s not found in %+v", name, steps)
	return Step{}
}

func TestRunnerHappyPath(t *testing.T) {
	env := newTestEnv(t, coveredSource("Ana Silva", "cardiology"), testSlots())

	result, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, steps: %+v", result.Steps)
	}
	if result.AppointmentID == "" {
		t.Error("expected an appointment id")
	}
	for _, name := range []string{StepCheckEligibility, StepFindSlots, StepBookAppointment, StepConfirm} {
		if s := stepByName(t, result.Steps, name); s.Status != StepCompleted {
			t.Errorf("expected %s completed, got %s", name, s.Status)
		}
	}

	// Earliest slot wins: slot-1 is a day before slot-2.
	find := stepByName(t, result.Steps, StepFindSlots)
	if find.Data["chosenSlot"] != "slot-1" {
		t.Errorf("expected earliest slot chosen, got %v", find.Data["chosenSlot"])
	}

	sess, _ := env.store.Get(context.Background(), env.sessID)
	if len(sess.Audit) == 0 {
		t.Fatal("expected audit entries for the run")
	}
	for i := 1; i < len(sess.Audit); i++ {
		if sess.Audit[i].Timestamp.Before(sess.Audit[i-1].Timestamp) {
			t.Fatalf("audit order violated at %d", i)
		}
	}
}

func TestRunnerIneligibleHaltsRun(t *testing.T) {
	// Empty coverage source: lookup finds nothing.
	env := newTestEnv(t, eligibility.NewStaticCoverageSource(), testSlots())

	result, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed run")
	}
	if s := stepByName(t, result.Steps, StepCheckEligibility); s.Status != StepFailed {
		t.Errorf("expected check_eligibility failed, got %s", s.Status)
	}
	// Later steps stay pending permanently.
	for _, name := range []string{StepFindSlots, StepBookAppointment, StepConfirm} {
		if s := stepByName(t, result.Steps, name); s.Status != StepPending {
			t.Errorf("expected %s pending after halt, got %s", name, s.Status)
		}
	}
}

func TestRunnerCoverageOutageIsIneligible(t *testing.T) {
	env := newTestEnv(t, failingCoverage{}, testSlots())

	result, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	step := stepByName(t, result.Steps, StepCheckEligibility)
	if step.Status != StepFailed {
		t.Fatalf("expected failed step, got %s", step.Status)
	}
	if step.Error != "coverage lookup unavailable" {
		t.Errorf("unexpected failure reason %q", step.Error)
	}
}

func TestRunnerNoSlotsFailsFindStep(t *testing.T) {
	env := newTestEnv(t, coveredSource("Ana Silva", "dermatology"), testSlots())

	result, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "dermatology",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed run")
	}
	if result.AppointmentID != "" {
		t.Error("expected no appointment id on failed run")
	}
	step := stepByName(t, result.Steps, StepFindSlots)
	if step.Status != StepFailed || step.Error != "no matching slots" {
		t.Errorf("expected find_slots failed with no matching slots, got %s/%q", step.Status, step.Error)
	}
}

func TestRunnerConcurrentBookingExactlyOneWins(t *testing.T) {
	seed := []slots.Slot{{
		ID: "only", ProviderID: "prov-a", ProviderName: "Dr. Chen",
		LocationID: "loc-1", ServiceType: "cardiology",
		Date: "2026-09-02", StartTime: "09:00", EndTime: "09:30",
		DurationMins: 30, Status: slots.StatusAvailable,
	}}

	store := session.NewMemoryStore()
	pool := slots.NewMemoryPool(seed)
	src := coveredSource("Ana Silva", "cardiology")
	src.Put("Ben Wu", "cardiology", eligibility.Coverage{PlanName: "Lumen HMO"})
	checker := eligibility.NewChecker(src, logging.New("error"))
	runner := NewRunner(checker, pool, store, nil, logging.New("error"))

	var results [2]Result
	var wg sync.WaitGroup
	for i, name := range []string{"Ana Silva", "Ben Wu"} {
		sess, _ := store.GetOrCreate(context.Background(), "", session.NewSessionParams{})
		wg.Add(1)
		go func(idx int, patient, sessID string) {
			defer wg.Done()
			res, err := runner.Execute(context.Background(), Request{
				SessionID:   sessID,
				PatientName: patient,
				ServiceType: "cardiology",
			})
			if err != nil {
				t.Errorf("Execute failed: %v", err)
				return
			}
			results[idx] = res
		}(i, name, sess.ID)
	}
	wg.Wait()

	winners := 0
	for _, res := range results {
		if res.Success {
			winners++
			continue
		}
		book := stepByName(t, res.Steps, StepBookAppointment)
		find := stepByName(t, res.Steps, StepFindSlots)
		if book.Status != StepFailed && find.Status != StepFailed {
			t.Errorf("losing run must fail at find_slots or book_appointment: %+v", res.Steps)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning run, got %d", winners)
	}
}

func TestRunnerValidation(t *testing.T) {
	env := newTestEnv(t, coveredSource("Ana Silva", "cardiology"), testSlots())

	if _, err := env.runner.Execute(context.Background(), Request{SessionID: env.sessID}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for empty fields, got %v", err)
	}
	_, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
		Urgency:     "whenever",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for bad urgency, got %v", err)
	}
}

func TestRunnerContinuesAfterSessionExpiry(t *testing.T) {
	env := newTestEnv(t, coveredSource("Ana Silva", "cardiology"), testSlots())
	if err := env.store.Expire(context.Background(), env.sessID); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	// An in-flight run is not cancelled by expiry; only new inbound messages
	// are rejected.
	result, err := env.runner.Execute(context.Background(), Request{
		SessionID:   env.sessID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected run to complete despite expired session, steps: %+v", result.Steps)
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	details []BookingDetails
}

func (n *recordingNotifier) AppointmentBooked(ctx context.Context, details BookingDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.details = append(n.details, details)
	return nil
}

func TestRunnerNotifiesOnConfirm(t *testing.T) {
	store := session.NewMemoryStore()
	sess, _ := store.GetOrCreate(context.Background(), "", session.NewSessionParams{
		Email: "ana@example.com",
	})
	pool := slots.NewMemoryPool(testSlots())
	checker := eligibility.NewChecker(coveredSource("Ana Silva", "cardiology"), logging.New("error"))
	notifier := &recordingNotifier{}
	runner := NewRunner(checker, pool, store, notifier, logging.New("error"))

	result, err := runner.Execute(context.Background(), Request{
		SessionID:   sess.ID,
		PatientName: "Ana Silva",
		ServiceType: "cardiology",
	})
	if err != nil || !result.Success {
		t.Fatalf("expected successful run, err=%v steps=%+v", err, result.Steps)
	}

	if len(notifier.details) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.details))
	}
	got := notifier.details[0]
	if got.AppointmentID != result.AppointmentID {
		t.Errorf("notification appointment id mismatch: %s vs %s", got.AppointmentID, result.AppointmentID)
	}
	if got.Email != "ana@example.com" {
		t.Errorf("expected session email on notification, got %q", got.Email)
	}
}
