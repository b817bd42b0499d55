package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recordsDB defines the database interface needed by Repository.
type recordsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads practice records from PostgreSQL.
type Repository struct {
	db recordsDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db recordsDB) *Repository {
	return &Repository{db: db}
}

// GetAllPatients loads every patient record.
func (r *Repository) GetAllPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, first_name, last_name,
			   COALESCE(email, ''), COALESCE(phone, ''), COALESCE(insurance, ''),
			   created_at
		FROM patients
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("records: query patients: %w", err)
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Insurance, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("records: scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// GetAllAppointments loads every appointment record.
func (r *Repository) GetAllAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, provider_id, service_type, status, scheduled_at
		FROM appointments
		ORDER BY scheduled_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("records: query appointments: %w", err)
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.ServiceType, &a.Status, &a.ScheduledAt); err != nil {
			return nil, fmt.Errorf("records: scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// GetAllTransactions loads every transaction record.
func (r *Repository) GetAllTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(patient_id, ''), type, status, amount_cents,
			   COALESCE(description, ''), created_at
		FROM transactions
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("records: query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.PatientID, &t.Type, &t.Status, &t.AmountCents, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("records: scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
