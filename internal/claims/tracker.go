package claims

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClaimStatus moves strictly forward through the submission pipeline.
type ClaimStatus string

const (
	StatusSubmitted   ClaimStatus = "submitted"
	StatusReceived    ClaimStatus = "received"
	StatusProcessing  ClaimStatus = "processing"
	StatusAdjudicated ClaimStatus = "adjudicated"
	StatusPaid        ClaimStatus = "paid"
)

var statusOrder = []ClaimStatus{StatusSubmitted, StatusReceived, StatusProcessing, StatusAdjudicated, StatusPaid}

var (
	// ErrClaimNotFound indicates an unknown claim id.
	ErrClaimNotFound = errors.New("claims: claim not found")
	// ErrClaimFinal indicates the claim already reached a terminal status.
	ErrClaimFinal = errors.New("claims: claim already in a terminal status")
)

// TrackedClaim is one claim moving through the clearinghouse pipeline.
type TrackedClaim struct {
	ID                 string       `json:"id"`
	Status             ClaimStatus  `json:"status"`
	Request            ClaimRequest `json:"request"`
	Analysis           Analysis     `json:"analysis"`
	AdjudicationResult string       `json:"adjudicationResult,omitempty"`
	DenialReason       string       `json:"denialReason,omitempty"`
	AppealID           string       `json:"appealId,omitempty"`
	SubmittedAt        time.Time    `json:"submittedAt"`
	LastUpdated        time.Time    `json:"lastUpdated"`
}

// Tracker keeps claim state in memory. Status advances only on explicit
// Advance calls; there is no background timer faking clearinghouse progress.
type Tracker struct {
	mu     sync.RWMutex
	claims map[string]*TrackedClaim
	clock  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		claims: make(map[string]*TrackedClaim),
		clock:  time.Now,
	}
}

// WithClock overrides the tracker clock. Tests only.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Submit registers a claim and returns its id.
func (t *Tracker) Submit(ctx context.Context, req ClaimRequest, analysis Analysis) *TrackedClaim {
	now := t.clock().UTC()
	claim := &TrackedClaim{
		ID:          fmt.Sprintf("CLM-%s-%s", now.Format("20060102150405"), uuid.NewString()[:8]),
		Status:      StatusSubmitted,
		Request:     req,
		Analysis:    analysis,
		SubmittedAt: now,
		LastUpdated: now,
	}

	t.mu.Lock()
	t.claims[claim.ID] = claim
	t.mu.Unlock()

	out := *claim
	return &out
}

// Get returns a snapshot of the claim.
func (t *Tracker) Get(ctx context.Context, id string) (*TrackedClaim, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	claim, ok := t.claims[id]
	if !ok {
		return nil, ErrClaimNotFound
	}
	out := *claim
	return &out, nil
}

// Advance moves the claim to its next pipeline status. Adjudication is
// decided from the analyzer's approval likelihood: at or above 50 the claim
// approves, below it denies and an appeal record is opened.
func (t *Tracker) Advance(ctx context.Context, id string) (*TrackedClaim, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	claim, ok := t.claims[id]
	if !ok {
		return nil, ErrClaimNotFound
	}

	next, err := nextStatus(claim.Status)
	if err != nil {
		return nil, err
	}

	claim.Status = next
	claim.LastUpdated = t.clock().UTC()

	if next == StatusAdjudicated {
		if claim.Analysis.ApprovalLikelihood >= 50 {
			claim.AdjudicationResult = "approved"
		} else {
			claim.AdjudicationResult = "denied"
			claim.DenialReason = "Medical necessity not established"
			claim.AppealID = "APP-" + claim.ID
		}
	}
	if next == StatusPaid && claim.AdjudicationResult != "approved" {
		// A denied claim never reaches paid; hold at adjudicated.
		claim.Status = StatusAdjudicated
		return nil, ErrClaimFinal
	}

	out := *claim
	return &out, nil
}

func nextStatus(current ClaimStatus) (ClaimStatus, error) {
	for i, s := range statusOrder {
		if s == current {
			if i == len(statusOrder)-1 {
				return "", ErrClaimFinal
			}
			return statusOrder[i+1], nil
		}
	}
	return "", fmt.Errorf("claims: unknown status %q", current)
}
