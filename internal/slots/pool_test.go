package slots

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func seedPool() *MemoryPool {
	return NewMemoryPool([]Slot{
		{ID: "s1", ProviderID: "prov-b", ServiceType: "cardiology", Date: "2025-07-01", StartTime: "09:00"},
		{ID: "s2", ProviderID: "prov-a", ServiceType: "cardiology", Date: "2025-07-01", StartTime: "09:00"},
		{ID: "s3", ProviderID: "prov-a", ServiceType: "cardiology", Date: "2025-06-30", StartTime: "14:00"},
		{ID: "s4", ProviderID: "prov-c", ServiceType: "primary care", Date: "2025-06-29", StartTime: "10:00"},
		{ID: "s5", ProviderID: "prov-c", ServiceType: "cardiology", Date: "2025-07-01", StartTime: "08:00", Status: StatusBooked},
	})
}

func TestQuery_OrderingAndFiltering(t *testing.T) {
	pool := seedPool()

	got, err := pool.Query(context.Background(), Filter{ServiceType: "cardiology"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	wantOrder := []string{"s3", "s2", "s1"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d slots, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("slot[%d] = %s, want %s (date asc, start asc, provider asc)", i, got[i].ID, id)
		}
	}
}

func TestQuery_EmptyFilterReturnsWholeAvailablePool(t *testing.T) {
	pool := seedPool()
	got, err := pool.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d slots, want 4 (booked slot excluded)", len(got))
	}
}

func TestQuery_UnknownServiceTypeIsEmptyNotError(t *testing.T) {
	pool := seedPool()
	got, err := pool.Query(context.Background(), Filter{ServiceType: "astrology"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d slots, want 0", len(got))
	}
}

func TestBook_CompareAndSet(t *testing.T) {
	pool := seedPool()

	if err := pool.Book(context.Background(), "s1"); err != nil {
		t.Fatalf("first Book failed: %v", err)
	}
	if err := pool.Book(context.Background(), "s1"); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second Book err = %v, want ErrSlotConflict", err)
	}
	if err := pool.Book(context.Background(), "nope"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("unknown Book err = %v, want ErrSlotNotFound", err)
	}
}

func TestBook_ConcurrentRunsOneWinner(t *testing.T) {
	pool := seedPool()

	const racers = 16
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = pool.Book(context.Background(), "s2")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrSlotConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d successful bookings, want exactly 1", wins)
	}
}

func TestRelease(t *testing.T) {
	pool := seedPool()
	if err := pool.Release(context.Background(), "s5"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := pool.Book(context.Background(), "s5"); err != nil {
		t.Fatalf("rebooking released slot failed: %v", err)
	}
}
