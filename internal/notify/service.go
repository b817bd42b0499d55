package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenclinic/practice-ai-platform/internal/workflow"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// SMSSender sends text messages to patients.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// StubSMSSender logs the message instead of sending it. Used when no SMS
// provider is configured.
type StubSMSSender struct {
	logger *logging.Logger
}

func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to, "length", len(body))
	return nil
}

// Config names the practice in outgoing messages.
type Config struct {
	PracticeName  string
	PracticePhone string
}

// Service renders notification templates and delivers them over the
// configured channels. Missing channels are skipped, not errors; the caller
// already committed whatever the notification describes.
type Service struct {
	email  EmailSender
	sms    SMSSender
	cfg    Config
	logger *logging.Logger
}

func NewService(email EmailSender, sms SMSSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PracticeName == "" {
		cfg.PracticeName = "Lumen Clinic"
	}
	return &Service{email: email, sms: sms, cfg: cfg, logger: logger}
}

// AppointmentBooked sends booking confirmations over every channel the
// patient left contact details for.
func (s *Service) AppointmentBooked(ctx context.Context, details workflow.BookingDetails) error {
	vars := map[string]string{
		"patient_name":   details.PatientName,
		"service_type":   details.ServiceType,
		"date":           details.Slot.Date,
		"time":           details.Slot.StartTime,
		"appointment_id": details.AppointmentID,
		"phone":          s.cfg.PracticePhone,
		"practice_name":  s.cfg.PracticeName,
	}

	var errs []string
	if details.Email != "" && s.email != nil {
		subject, body, err := Render("appointment_confirmation_email", vars)
		if err == nil {
			err = s.email.Send(ctx, EmailMessage{
				To:      details.Email,
				ToName:  details.PatientName,
				Subject: subject,
				Body:    body,
			})
		}
		if err != nil {
			s.logger.Error("confirmation email failed", "error", err, "appointment_id", details.AppointmentID)
			errs = append(errs, err.Error())
		}
	}
	if details.Phone != "" && s.sms != nil {
		_, body, err := Render("appointment_confirmation_sms", vars)
		if err == nil {
			err = s.sms.SendSMS(ctx, details.Phone, body)
		}
		if err != nil {
			s.logger.Error("confirmation sms failed", "error", err, "appointment_id", details.AppointmentID)
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: confirmation delivery: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ReminderDetails describes an upcoming appointment to remind about.
type ReminderDetails struct {
	PatientName string
	Provider    string
	Date        string
	Time        string
	Email       string
	Phone       string
}

// SendReminder delivers an appointment reminder, preferring SMS when a phone
// number is on file.
func (s *Service) SendReminder(ctx context.Context, details ReminderDetails) error {
	vars := map[string]string{
		"patient_name":  details.PatientName,
		"provider":      details.Provider,
		"date":          details.Date,
		"time":          details.Time,
		"phone":         s.cfg.PracticePhone,
		"practice_name": s.cfg.PracticeName,
	}

	if details.Phone != "" && s.sms != nil {
		_, body, err := Render("appointment_reminder_sms", vars)
		if err != nil {
			return err
		}
		return s.sms.SendSMS(ctx, details.Phone, body)
	}
	if details.Email != "" && s.email != nil {
		subject, body, err := Render("appointment_reminder_email", vars)
		if err != nil {
			return err
		}
		return s.email.Send(ctx, EmailMessage{
			To:      details.Email,
			ToName:  details.PatientName,
			Subject: subject,
			Body:    body,
		})
	}
	return fmt.Errorf("notify: no reachable channel for reminder")
}

// BillingReminder describes an overdue invoice.
type BillingReminder struct {
	InvoiceID   string
	PatientName string
	Email       string
	AmountCents int64
	DueDate     string
	DaysOverdue int
}

// SendBillingReminder emails a payment reminder for an overdue invoice.
func (s *Service) SendBillingReminder(ctx context.Context, reminder BillingReminder) error {
	if reminder.Email == "" || s.email == nil {
		return fmt.Errorf("notify: no email on file for invoice %s", reminder.InvoiceID)
	}

	subject, body, err := Render("billing_reminder_email", map[string]string{
		"patient_name":  reminder.PatientName,
		"invoice_id":    reminder.InvoiceID,
		"amount":        fmt.Sprintf("$%.2f", float64(reminder.AmountCents)/100),
		"due_date":      reminder.DueDate,
		"days_overdue":  fmt.Sprintf("%d", reminder.DaysOverdue),
		"phone":         s.cfg.PracticePhone,
		"practice_name": s.cfg.PracticeName,
	})
	if err != nil {
		return err
	}
	return s.email.Send(ctx, EmailMessage{
		To:      reminder.Email,
		ToName:  reminder.PatientName,
		Subject: subject,
		Body:    body,
	})
}

// SendNoShowFollowup texts a patient who missed their appointment.
func (s *Service) SendNoShowFollowup(ctx context.Context, patientName, phone string) error {
	if phone == "" || s.sms == nil {
		return fmt.Errorf("notify: no phone on file for no-show followup")
	}
	_, body, err := Render("no_show_followup_sms", map[string]string{
		"patient_name":  patientName,
		"phone":         s.cfg.PracticePhone,
		"practice_name": s.cfg.PracticeName,
	})
	if err != nil {
		return err
	}
	return s.sms.SendSMS(ctx, phone, body)
}

var _ workflow.Notifier = (*Service)(nil)
