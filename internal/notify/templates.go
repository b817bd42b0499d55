package notify

import (
	"fmt"
	"strings"
)

// Channel selects the delivery transport for a template.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Template is a message body with {variable} placeholders.
type Template struct {
	ID        string
	Channel   Channel
	Subject   string // email only
	Body      string
	Variables []string
}

var templates = map[string]Template{
	"appointment_confirmation_sms": {
		ID:        "appointment_confirmation_sms",
		Channel:   ChannelSMS,
		Body:      "Hi {patient_name}, your {service_type} appointment is confirmed for {date} at {time}. Confirmation #{appointment_id}. - {practice_name}",
		Variables: []string{"patient_name", "service_type", "date", "time", "appointment_id", "practice_name"},
	},
	"appointment_confirmation_email": {
		ID:      "appointment_confirmation_email",
		Channel: ChannelEmail,
		Subject: "Appointment Confirmed - {practice_name}",
		Body: `Dear {patient_name},

Your appointment has been confirmed:

  Service: {service_type}
  Date: {date}
  Time: {time}
  Confirmation: {appointment_id}

If you need to reschedule or cancel, please call us at {phone}.

Best regards,
{practice_name}`,
		Variables: []string{"patient_name", "service_type", "date", "time", "appointment_id", "phone", "practice_name"},
	},
	"appointment_reminder_sms": {
		ID:        "appointment_reminder_sms",
		Channel:   ChannelSMS,
		Body:      "Hi {patient_name}, this is a reminder for your appointment with {provider} on {date} at {time}. Reply CANCEL to reschedule. - {practice_name}",
		Variables: []string{"patient_name", "provider", "date", "time", "practice_name"},
	},
	"appointment_reminder_email": {
		ID:      "appointment_reminder_email",
		Channel: ChannelEmail,
		Subject: "Appointment Reminder - {practice_name}",
		Body: `Dear {patient_name},

This is a friendly reminder about your upcoming appointment:

  Date: {date}
  Time: {time}
  Provider: {provider}

If you need to reschedule or cancel, please call us at {phone}.

Best regards,
{practice_name}`,
		Variables: []string{"patient_name", "date", "time", "provider", "phone", "practice_name"},
	},
	"billing_reminder_email": {
		ID:      "billing_reminder_email",
		Channel: ChannelEmail,
		Subject: "Payment Reminder - {practice_name}",
		Body: `Dear {patient_name},

This is a friendly reminder about your outstanding balance:

  Invoice #: {invoice_id}
  Amount Due: {amount}
  Due Date: {due_date}
  Days Overdue: {days_overdue}

Please visit our patient portal or call us at {phone} to make a payment.
We offer payment plans if you need assistance.

Thank you,
{practice_name}`,
		Variables: []string{"patient_name", "invoice_id", "amount", "due_date", "days_overdue", "phone", "practice_name"},
	},
	"no_show_followup_sms": {
		ID:        "no_show_followup_sms",
		Channel:   ChannelSMS,
		Body:      "Hi {patient_name}, we missed you at your appointment today. Please call {phone} to reschedule. Your health is important to us. - {practice_name}",
		Variables: []string{"patient_name", "phone", "practice_name"},
	},
}

// Render fills a template's placeholders. Every declared variable must be
// supplied so a half-filled message never leaves the building.
func Render(templateID string, vars map[string]string) (subject, body string, err error) {
	tpl, ok := templates[templateID]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", templateID)
	}
	for _, v := range tpl.Variables {
		if _, ok := vars[v]; !ok {
			return "", "", fmt.Errorf("notify: template %q missing variable %q", templateID, v)
		}
	}
	replace := func(s string) string {
		for k, v := range vars {
			s = strings.ReplaceAll(s, "{"+k+"}", v)
		}
		return s
	}
	return replace(tpl.Subject), replace(tpl.Body), nil
}
