package audit

import (
	"context"
	"time"

	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// RecordingStore decorates a session store, mirroring every audit append to
// the durable store. Mirror failures are logged, never surfaced: the live
// trail already accepted the entry, and the mirror can be rebuilt from logs.
type RecordingStore struct {
	session.Store
	durable *Store
	logger  *logging.Logger
	clock   func() time.Time
}

func NewRecordingStore(inner session.Store, durable *Store, logger *logging.Logger) *RecordingStore {
	if inner == nil {
		panic("audit: inner session store cannot be nil")
	}
	if durable == nil {
		panic("audit: durable store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordingStore{Store: inner, durable: durable, logger: logger, clock: time.Now}
}

// WithClock overrides the mirror clock. Tests only.
func (s *RecordingStore) WithClock(clock func() time.Time) *RecordingStore {
	s.clock = clock
	return s
}

func (s *RecordingStore) AppendAudit(ctx context.Context, id string, event, detail string, data map[string]any) error {
	if err := s.Store.AppendAudit(ctx, id, event, detail, data); err != nil {
		return err
	}
	entry := Entry{
		Event:     event,
		Detail:    detail,
		Data:      data,
		Timestamp: s.clock().UTC(),
	}
	if err := s.durable.Record(ctx, id, entry); err != nil {
		s.logger.Warn("durable audit mirror failed", "error", err, "session_id", id, "event", event)
	}
	return nil
}

var _ session.Store = (*RecordingStore)(nil)
