package eligibility

import (
	"context"
	"strings"
	"sync"
)

// StaticCoverageSource serves coverage records from memory. Used in
// development and tests in place of a payer connection.
type StaticCoverageSource struct {
	mu      sync.RWMutex
	records map[string]Coverage // key: patientID|serviceType
}

// NewStaticCoverageSource creates an empty source.
func NewStaticCoverageSource() *StaticCoverageSource {
	return &StaticCoverageSource{records: make(map[string]Coverage)}
}

// Put registers coverage for a patient/service pair.
func (s *StaticCoverageSource) Put(patientID, serviceType string, coverage Coverage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[coverageKey(patientID, serviceType)] = coverage
}

// Lookup returns the registered coverage, or nil when the patient has none.
func (s *StaticCoverageSource) Lookup(ctx context.Context, patientID, serviceType string) (*Coverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.records[coverageKey(patientID, serviceType)]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

func coverageKey(patientID, serviceType string) string {
	return patientID + "|" + strings.ToLower(strings.TrimSpace(serviceType))
}
