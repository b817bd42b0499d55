// Package slots manages the pool of bookable appointment slots. The pool is
// the one piece of state shared between concurrent workflow runs, so the
// available→booked transition is a single compare-and-set.
package slots

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status of a slot in the pool.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusBlocked   Status = "blocked"
	StatusTentative Status = "tentative"
)

var (
	// ErrSlotNotFound indicates the slot id is unknown to the pool.
	ErrSlotNotFound = errors.New("slots: slot not found")
	// ErrSlotConflict indicates the slot was not available at booking time,
	// usually because a concurrent run got there first.
	ErrSlotConflict = errors.New("slots: slot is no longer available")
)

// Slot is a bookable provider/location/time unit.
type Slot struct {
	ID           string `json:"id"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`
	ServiceType  string `json:"serviceType"`
	Specialty    string `json:"specialty,omitempty"`
	Date         string `json:"date"`      // YYYY-MM-DD
	StartTime    string `json:"startTime"` // HH:MM, 24h
	EndTime      string `json:"endTime"`
	DurationMins int    `json:"duration"`
	Status       Status `json:"status"`
}

// Filter narrows a slot query. Empty fields match everything.
type Filter struct {
	ServiceType string
	Specialty   string
	LocationID  string
	ProviderID  string
}

// Pool is the slot catalog boundary consumed by the orchestrator.
type Pool interface {
	// Query returns available slots matching the filter, ordered by date,
	// start time, then provider id. An unknown service type yields an empty
	// list, not an error.
	Query(ctx context.Context, filter Filter) ([]Slot, error)
	// Book transitions a slot from available to booked atomically. Returns
	// ErrSlotConflict if the slot is in any other state.
	Book(ctx context.Context, slotID string) error
	// Release returns a booked slot to the pool (cancellations).
	Release(ctx context.Context, slotID string) error
}

// MemoryPool is the in-process Pool implementation.
type MemoryPool struct {
	mu    sync.Mutex
	slots map[string]*Slot
	clock func() time.Time
}

// NewMemoryPool creates a pool seeded with the given slots.
func NewMemoryPool(seed []Slot) *MemoryPool {
	p := &MemoryPool{
		slots: make(map[string]*Slot, len(seed)),
		clock: time.Now,
	}
	for i := range seed {
		s := seed[i]
		if s.Status == "" {
			s.Status = StatusAvailable
		}
		p.slots[s.ID] = &s
	}
	return p
}

// Add inserts or replaces a slot.
func (p *MemoryPool) Add(s Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Status == "" {
		s.Status = StatusAvailable
	}
	p.slots[s.ID] = &s
}

// Query filters the available slots. See Pool.
func (p *MemoryPool) Query(ctx context.Context, filter Filter) ([]Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Slot
	for _, s := range p.slots {
		if s.Status != StatusAvailable {
			continue
		}
		if !matches(filter.ServiceType, s.ServiceType) ||
			!matches(filter.Specialty, s.Specialty) ||
			!matches(filter.LocationID, s.LocationID) ||
			!matches(filter.ProviderID, s.ProviderID) {
			continue
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ProviderID < out[j].ProviderID
	})
	return out, nil
}

// Book flips a slot available→booked under the pool lock. See Pool.
func (p *MemoryPool) Book(ctx context.Context, slotID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != StatusAvailable {
		return ErrSlotConflict
	}
	s.Status = StatusBooked
	return nil
}

// Release returns a booked slot to available.
func (p *MemoryPool) Release(ctx context.Context, slotID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != StatusBooked {
		return ErrSlotConflict
	}
	s.Status = StatusAvailable
	return nil
}

// Get returns a copy of a slot for inspection.
func (p *MemoryPool) Get(slotID string) (Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[slotID]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}

func matches(want, have string) bool {
	if strings.TrimSpace(want) == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have))
}
