package records

import (
	"context"
	"sync"
)

// MemoryStore is a seedable in-memory Store used in development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	patients     []Patient
	appointments []Appointment
	transactions []Transaction
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed replaces the store contents wholesale.
func (s *MemoryStore) Seed(patients []Patient, appointments []Appointment, transactions []Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append([]Patient(nil), patients...)
	s.appointments = append([]Appointment(nil), appointments...)
	s.transactions = append([]Transaction(nil), transactions...)
}

// GetAllPatients returns a copy of the patient collection.
func (s *MemoryStore) GetAllPatients(ctx context.Context) ([]Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Patient(nil), s.patients...), nil
}

// GetAllAppointments returns a copy of the appointment collection.
func (s *MemoryStore) GetAllAppointments(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Appointment(nil), s.appointments...), nil
}

// GetAllTransactions returns a copy of the transaction collection.
func (s *MemoryStore) GetAllTransactions(ctx context.Context) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction(nil), s.transactions...), nil
}
