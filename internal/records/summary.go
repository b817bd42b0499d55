package records

import (
	"context"
	"fmt"
	"time"
)

// Store exposes the practice record collections. The CRUD side of the
// dashboard owns the data; this service only reads it.
type Store interface {
	GetAllPatients(ctx context.Context) ([]Patient, error)
	GetAllAppointments(ctx context.Context) ([]Appointment, error)
	GetAllTransactions(ctx context.Context) ([]Transaction, error)
}

// Summary is a point-in-time rollup of the practice's records. It is derived
// on every request and never cached, so analysis output always reflects the
// records as they are right now.
type Summary struct {
	GeneratedAt         time.Time `json:"generated_at"`
	PatientCount        int       `json:"patient_count"`
	AppointmentCount    int       `json:"appointment_count"`
	CompletedCount      int       `json:"completed_appointments"`
	UpcomingCount       int       `json:"upcoming_appointments"`
	RevenueCents        int64     `json:"revenue_cents"`
	ExpensesCents       int64     `json:"expenses_cents"`
	NetIncomeCents      int64     `json:"net_income_cents"`
	PendingCount        int       `json:"pending_transactions"`
	PendingAmountCents  int64     `json:"pending_amount_cents"`
	TransactionCount    int       `json:"transaction_count"`
}

// Summarize computes a Summary from the current record collections.
func Summarize(ctx context.Context, store Store, now time.Time) (*Summary, error) {
	patients, err := store.GetAllPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("records: load patients: %w", err)
	}
	appointments, err := store.GetAllAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("records: load appointments: %w", err)
	}
	transactions, err := store.GetAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("records: load transactions: %w", err)
	}

	s := &Summary{
		GeneratedAt:      now.UTC(),
		PatientCount:     len(patients),
		AppointmentCount: len(appointments),
		TransactionCount: len(transactions),
	}

	for _, a := range appointments {
		switch {
		case a.Status == AppointmentCompleted:
			s.CompletedCount++
		case a.Status == AppointmentScheduled && a.ScheduledAt.After(now):
			s.UpcomingCount++
		}
	}

	for _, t := range transactions {
		switch t.Status {
		case TransactionPending:
			s.PendingCount++
			s.PendingAmountCents += t.AmountCents
		case TransactionCompleted:
			if t.Type == TransactionExpense {
				s.ExpensesCents += t.AmountCents
			} else {
				s.RevenueCents += t.AmountCents
			}
		}
	}
	s.NetIncomeCents = s.RevenueCents - s.ExpensesCents

	return s, nil
}

// Dollars renders a cent amount as a "$1,234.56"-style string without the
// thousands separator, matching what the dashboard prints.
func Dollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
