package notify

import (
	"testing"
)

func TestNewSendGridSenderRequiresAPIKey(t *testing.T) {
	if s := NewSendGridSender(SendGridConfig{FromEmail: "noreply@example.com"}, nil); s != nil {
		t.Fatal("expected nil sender without an API key")
	}
}

func TestNewSESSenderRequiresClient(t *testing.T) {
	if s := NewSESSender(nil, SESConfig{FromEmail: "noreply@example.com"}, nil); s != nil {
		t.Fatal("expected nil sender without an SES client")
	}
}

func TestRenderRejectsMissingVariables(t *testing.T) {
	_, _, err := Render("appointment_reminder_sms", map[string]string{"patient_name": "Ana"})
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
