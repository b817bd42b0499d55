package archive

import (
	"time"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
)

// SessionRecord is the transcript written to S3 when a session reaches a
// terminal status.
type SessionRecord struct {
	Version      string               `json:"version"` // "1.0"
	SessionID    string               `json:"session_id"`
	PatientID    string               `json:"patient_id,omitempty"`
	SessionType  session.Type         `json:"session_type"`
	Status       session.Status       `json:"status"`
	Channel      session.Channel      `json:"channel"`
	PhoneHash    string               `json:"phone_hash,omitempty"` // sha256 of phone
	StartedAt    time.Time            `json:"started_at"`
	LastActivity time.Time            `json:"last_activity"`
	ArchivedAt   time.Time            `json:"archived_at"`
	MessageCount int                  `json:"message_count"`
	Context      map[string]any       `json:"context,omitempty"`
	Messages     []session.Message    `json:"messages"`
	Audit        []session.AuditEntry `json:"audit"`
}

// ManifestEntry is one JSONL line in the monthly archive manifest.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	SessionType  string `json:"session_type"`
	Status       string `json:"status"`
	Channel      string `json:"channel"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}

func newSessionRecord(sess *session.Session, now time.Time) *SessionRecord {
	rec := &SessionRecord{
		Version:      "1.0",
		SessionID:    sess.ID,
		PatientID:    sess.PatientID,
		SessionType:  sess.SessionType,
		Status:       sess.Status,
		Channel:      sess.Channel,
		StartedAt:    sess.StartedAt,
		LastActivity: sess.LastActivity,
		ArchivedAt:   now,
		MessageCount: len(sess.Messages),
		Context:      sess.Context,
		Messages:     append([]session.Message(nil), sess.Messages...),
		Audit:        sess.Audit,
	}
	if sess.Phone != "" {
		rec.PhoneHash = HashPhone(sess.Phone)
	}
	ScrubMessages(rec.Messages)
	return rec
}
