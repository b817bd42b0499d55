// Package eligibility verifies insurance coverage for a patient/service pair.
package eligibility

import (
	"context"
	"errors"
	"strings"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// ErrInvalidInput indicates a missing patient ID or service type. The caller
// must correct the request; no lookup is attempted.
var ErrInvalidInput = errors.New("eligibility: patient id and service type are required")

// Coverage is what the coverage source knows about a patient's plan for a
// given service type.
type Coverage struct {
	PlanName         string
	CopayCents       int64
	DeductibleCents  int64
	AuthRequired     bool
	ReferralRequired bool
}

// CoverageSource is the external payer/clearinghouse boundary. A nil result
// with a nil error means the patient has no coverage record for the service.
type CoverageSource interface {
	Lookup(ctx context.Context, patientID, serviceType string) (*Coverage, error)
}

// Result is the immutable coverage verdict returned to callers. It is kept in
// the session audit trail but never persisted as a record of truth.
type Result struct {
	IsEligible       bool     `json:"isEligible"`
	Coverage         string   `json:"coverage,omitempty"`
	CopayCents       int64    `json:"copay,omitempty"`
	DeductibleCents  int64    `json:"deductible,omitempty"`
	AuthRequired     bool     `json:"authRequired"`
	ReferralRequired bool     `json:"referralRequired"`
	Errors           []string `json:"errors,omitempty"`
}

// Checker derives eligibility verdicts from a coverage source.
type Checker struct {
	source CoverageSource
	logger *logging.Logger
}

// NewChecker creates a Checker.
func NewChecker(source CoverageSource, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{source: source, logger: logger}
}

// Check returns the coverage verdict for a patient/service pair.
//
// When the coverage source is unavailable the verdict is ineligible with an
// explanatory error rather than a guess: a false negative is the safe default
// on a billing-adjacent path. The checker never retries; that decision belongs
// to the caller.
func (c *Checker) Check(ctx context.Context, patientID, serviceType string) (Result, error) {
	if strings.TrimSpace(patientID) == "" || strings.TrimSpace(serviceType) == "" {
		return Result{}, ErrInvalidInput
	}

	coverage, err := c.source.Lookup(ctx, patientID, serviceType)
	if err != nil {
		c.logger.Warn("coverage lookup failed",
			"patient_id", patientID,
			"service_type", serviceType,
			"error", err,
		)
		return Result{
			IsEligible: false,
			Errors:     []string{"coverage lookup unavailable"},
		}, nil
	}
	if coverage == nil {
		return Result{
			IsEligible: false,
			Errors:     []string{"coverage lookup unavailable"},
		}, nil
	}

	return Result{
		IsEligible:       true,
		Coverage:         coverage.PlanName,
		CopayCents:       coverage.CopayCents,
		DeductibleCents:  coverage.DeductibleCents,
		AuthRequired:     coverage.AuthRequired,
		ReferralRequired: coverage.ReferralRequired,
	}, nil
}
