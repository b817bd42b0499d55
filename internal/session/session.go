// Package session holds one record per active conversation thread: identity,
// channel, context, the audit trail, and lifecycle timestamps.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies what the conversation is about.
type Type string

const (
	TypeScheduling  Type = "scheduling"
	TypeEligibility Type = "eligibility"
	TypeGeneral     Type = "general"
)

// Status is the session lifecycle state. Transitions only move forward:
// active→completed or active→expired, never back.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Channel identifies which transport the conversation arrived on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelWeb   Channel = "web"
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
)

var (
	// ErrSessionExpired is returned when a caller presents the id of an
	// expired session. The caller must start a new session; expired sessions
	// are never resurrected because that would break audit continuity.
	ErrSessionExpired = errors.New("session: session has expired")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session: session not found")
	// ErrSessionClosed is returned when mutating a completed session.
	ErrSessionClosed = errors.New("session: session already completed")
)

// Message is one turn of the conversation, append-only and timestamp-ordered.
type Message struct {
	SessionID string            `json:"sessionId"`
	Role      string            `json:"role"` // user, assistant, system
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditEntry records one observable event on the session: a routed intent, a
// workflow step transition, an eligibility verdict. Entries are immutable
// once appended and strictly timestamp-ordered.
type AuditEntry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Detail    string         `json:"detail,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session is one logical conversation thread across turns.
type Session struct {
	ID           string         `json:"id"`
	PatientID    string         `json:"patientId,omitempty"`
	SessionType  Type           `json:"sessionType"`
	Status       Status         `json:"status"`
	Channel      Channel        `json:"channel"`
	Phone        string         `json:"phone,omitempty"`
	Email        string         `json:"email,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
	LastActivity time.Time      `json:"lastActivity"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	Context      map[string]any `json:"context"`
	Messages     []Message      `json:"messages"`
	Audit        []AuditEntry   `json:"audit"`
}

// NewSessionParams carries identity hints for a freshly created session.
type NewSessionParams struct {
	SessionType Type
	Channel     Channel
	PatientID   string
	Phone       string
	Email       string
}

func newSession(params NewSessionParams, now time.Time) *Session {
	if params.SessionType == "" {
		params.SessionType = TypeGeneral
	}
	if params.Channel == "" {
		params.Channel = ChannelWeb
	}
	return &Session{
		ID:           uuid.NewString(),
		PatientID:    params.PatientID,
		SessionType:  params.SessionType,
		Status:       StatusActive,
		Channel:      params.Channel,
		Phone:        params.Phone,
		Email:        params.Email,
		StartedAt:    now,
		LastActivity: now,
		Context:      make(map[string]any),
	}
}

// newAuditEntry stamps an entry, keeping the session's audit order monotone
// even if the caller's clock reads slightly behind the previous entry.
func newAuditEntry(event, detail string, data map[string]any, now, floor time.Time) AuditEntry {
	if now.Before(floor) {
		now = floor
	}
	return AuditEntry{
		ID:        uuid.NewString(),
		Event:     event,
		Detail:    detail,
		Data:      data,
		Timestamp: now,
	}
}
