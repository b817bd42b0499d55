package main

import (
	"time"

	"github.com/lumenclinic/practice-ai-platform/internal/eligibility"
	"github.com/lumenclinic/practice-ai-platform/internal/records"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
)

// Demo fixtures for running the server without Postgres or a payer feed.

func seedDemoRecords(store *records.MemoryStore) {
	now := time.Now().UTC()
	store.Seed(
		[]records.Patient{
			{ID: "pat-001", FirstName: "Maria", LastName: "Santos", Email: "maria.santos@example.com", Insurance: "Gold PPO", CreatedAt: now.AddDate(0, -14, 0)},
			{ID: "pat-002", FirstName: "James", LastName: "Okafor", Email: "james.okafor@example.com", Insurance: "Silver HMO", CreatedAt: now.AddDate(0, -8, 0)},
			{ID: "pat-003", FirstName: "Lena", LastName: "Fischer", Phone: "+15550100233", Insurance: "Medicare", CreatedAt: now.AddDate(0, -3, 0)},
			{ID: "pat-004", FirstName: "Derek", LastName: "Hsu", Email: "derek.hsu@example.com", CreatedAt: now.AddDate(0, -1, 0)},
		},
		[]records.Appointment{
			{ID: "apt-001", PatientID: "pat-001", ProviderID: "prov-okafor", ServiceType: "cardiology", Status: records.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -21)},
			{ID: "apt-002", PatientID: "pat-002", ProviderID: "prov-nguyen", ServiceType: "dermatology", Status: records.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -14)},
			{ID: "apt-003", PatientID: "pat-003", ProviderID: "prov-okafor", ServiceType: "cardiology", Status: records.AppointmentNoShow, ScheduledAt: now.AddDate(0, 0, -7)},
			{ID: "apt-004", PatientID: "pat-001", ProviderID: "prov-nguyen", ServiceType: "annual_physical", Status: records.AppointmentScheduled, ScheduledAt: now.AddDate(0, 0, 5)},
			{ID: "apt-005", PatientID: "pat-004", ProviderID: "prov-okafor", ServiceType: "cardiology", Status: records.AppointmentCancelled, ScheduledAt: now.AddDate(0, 0, -2)},
		},
		[]records.Transaction{
			{ID: "txn-001", PatientID: "pat-001", Type: records.TransactionIncome, Status: records.TransactionCompleted, AmountCents: 32500, Description: "cardiology consult", CreatedAt: now.AddDate(0, 0, -21)},
			{ID: "txn-002", PatientID: "pat-002", Type: records.TransactionIncome, Status: records.TransactionCompleted, AmountCents: 18000, Description: "dermatology visit", CreatedAt: now.AddDate(0, 0, -14)},
			{ID: "txn-003", PatientID: "pat-003", Type: records.TransactionIncome, Status: records.TransactionPending, AmountCents: 27500, Description: "cardiology consult", CreatedAt: now.AddDate(0, 0, -6)},
			{ID: "txn-004", Type: records.TransactionExpense, Status: records.TransactionCompleted, AmountCents: 42000, Description: "lab services invoice", CreatedAt: now.AddDate(0, 0, -10)},
		},
	)
}

func seedDemoCoverage(source *eligibility.StaticCoverageSource) {
	source.Put("pat-001", "cardiology", eligibility.Coverage{
		PlanName:        "Gold PPO",
		CopayCents:      2500,
		DeductibleCents: 50000,
	})
	source.Put("pat-001", "annual_physical", eligibility.Coverage{
		PlanName: "Gold PPO",
	})
	source.Put("pat-002", "dermatology", eligibility.Coverage{
		PlanName:         "Silver HMO",
		CopayCents:       4000,
		DeductibleCents:  150000,
		ReferralRequired: true,
	})
	source.Put("pat-003", "cardiology", eligibility.Coverage{
		PlanName:     "Medicare",
		AuthRequired: true,
	})
}

func demoSlots() []slots.Slot {
	base := time.Now().UTC().AddDate(0, 0, 3)
	day := func(offset int) string { return base.AddDate(0, 0, offset).Format("2006-01-02") }
	return []slots.Slot{
		{ID: "slot-001", ProviderID: "prov-okafor", ProviderName: "Dr. Okafor", LocationID: "loc-main", LocationName: "Main Street Clinic", ServiceType: "cardiology", Specialty: "cardiology", Date: day(0), StartTime: "09:00", EndTime: "09:30", DurationMins: 30, Status: slots.StatusAvailable},
		{ID: "slot-002", ProviderID: "prov-okafor", ProviderName: "Dr. Okafor", LocationID: "loc-main", LocationName: "Main Street Clinic", ServiceType: "cardiology", Specialty: "cardiology", Date: day(0), StartTime: "11:00", EndTime: "11:30", DurationMins: 30, Status: slots.StatusAvailable},
		{ID: "slot-003", ProviderID: "prov-nguyen", ProviderName: "Dr. Nguyen", LocationID: "loc-main", LocationName: "Main Street Clinic", ServiceType: "dermatology", Specialty: "dermatology", Date: day(1), StartTime: "10:00", EndTime: "10:45", DurationMins: 45, Status: slots.StatusAvailable},
		{ID: "slot-004", ProviderID: "prov-nguyen", ProviderName: "Dr. Nguyen", LocationID: "loc-annex", LocationName: "Annex Clinic", ServiceType: "annual_physical", Date: day(2), StartTime: "08:30", EndTime: "09:15", DurationMins: 45, Status: slots.StatusAvailable},
		{ID: "slot-005", ProviderID: "prov-hale", ProviderName: "Dr. Hale", LocationID: "loc-annex", LocationName: "Annex Clinic", ServiceType: "cardiology", Specialty: "cardiology", Date: day(4), StartTime: "14:00", EndTime: "14:30", DurationMins: 30, Status: slots.StatusAvailable},
	}
}
