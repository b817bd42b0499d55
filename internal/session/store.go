package session

import (
	"context"
	"sync"
	"time"
)

// Store is the session persistence boundary. Implementations must serialize
// writes per session: concurrent turns on the same session never interleave
// their appends, while distinct sessions proceed fully in parallel.
type Store interface {
	// GetOrCreate loads the session with the given id, or creates a fresh one
	// when id is empty. Presenting the id of an expired session returns
	// ErrSessionExpired.
	GetOrCreate(ctx context.Context, id string, params NewSessionParams) (*Session, error)
	// Get loads a session without mutating it. Expired sessions are returned
	// as-is so audit reads keep working after expiry.
	Get(ctx context.Context, id string) (*Session, error)
	// Touch bumps lastActivity. lastActivity never moves backward.
	Touch(ctx context.Context, id string) error
	// AppendMessage appends one conversation turn.
	AppendMessage(ctx context.Context, id string, msg Message) error
	// AppendAudit appends one audit entry, stamped by the store.
	AppendAudit(ctx context.Context, id string, event, detail string, data map[string]any) error
	// MergeContext folds updates into the session context map.
	MergeContext(ctx context.Context, id string, updates map[string]any) error
	// Complete moves the session active→completed.
	Complete(ctx context.Context, id string) error
	// Expire moves the session active→expired. Used by the idle sweeper.
	Expire(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory with a striped lock per
// session id.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	clock    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		clock:    time.Now,
	}
}

// WithClock overrides the store clock. Tests only.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

func (s *MemoryStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(ctx context.Context, id string, params NewSessionParams) (*Session, error) {
	now := s.clock().UTC()

	if id == "" {
		sess := newSession(params, now)
		// Copy before publishing: once the session is in the map another
		// goroutine may mutate it under its own lock.
		out := copySession(sess)
		s.mu.Lock()
		s.sessions[sess.ID] = sess
		s.mu.Unlock()
		return out, nil
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Status == StatusExpired {
		return nil, ErrSessionExpired
	}
	return copySession(sess), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	// Copying must hold the session lock: mutate writes fields and appends
	// slices under it, not under s.mu.
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Touch implements Store.
func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	return s.mutate(id, func(sess *Session) error {
		now := s.clock().UTC()
		if now.After(sess.LastActivity) {
			sess.LastActivity = now
		}
		return nil
	})
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	return s.mutate(id, func(sess *Session) error {
		now := s.clock().UTC()
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		msg.SessionID = sess.ID
		sess.Messages = append(sess.Messages, msg)
		if now.After(sess.LastActivity) {
			sess.LastActivity = now
		}
		return nil
	})
}

// AppendAudit implements Store.
func (s *MemoryStore) AppendAudit(ctx context.Context, id string, event, detail string, data map[string]any) error {
	return s.mutate(id, func(sess *Session) error {
		var floor time.Time
		if n := len(sess.Audit); n > 0 {
			floor = sess.Audit[n-1].Timestamp
		}
		sess.Audit = append(sess.Audit, newAuditEntry(event, detail, data, s.clock().UTC(), floor))
		return nil
	})
}

// MergeContext implements Store.
func (s *MemoryStore) MergeContext(ctx context.Context, id string, updates map[string]any) error {
	return s.mutate(id, func(sess *Session) error {
		if sess.Context == nil {
			sess.Context = make(map[string]any, len(updates))
		}
		for k, v := range updates {
			sess.Context[k] = v
		}
		return nil
	})
}

// Complete implements Store.
func (s *MemoryStore) Complete(ctx context.Context, id string) error {
	return s.mutate(id, func(sess *Session) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		now := s.clock().UTC()
		sess.Status = StatusCompleted
		sess.CompletedAt = &now
		return nil
	})
}

// Expire implements Store.
func (s *MemoryStore) Expire(ctx context.Context, id string) error {
	return s.mutate(id, func(sess *Session) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		sess.Status = StatusExpired
		return nil
	})
}

// IdleSince returns ids of active sessions whose lastActivity is at or before
// the cutoff. Consumed by the sweeper.
func (s *MemoryStore) IdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	candidates := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		candidates = append(candidates, id)
	}
	s.mu.RUnlock()

	// Status and LastActivity are written under the session lock, so each
	// candidate is inspected under it too.
	var ids []string
	for _, id := range candidates {
		lock := s.lockFor(id)
		lock.Lock()
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok && sess.Status == StatusActive && !sess.LastActivity.After(cutoff) {
			ids = append(ids, id)
		}
		lock.Unlock()
	}
	return ids, nil
}

// mutate runs fn under the session's lock. Appends on a given session are
// serialized here; audit order within a session is therefore stable.
func (s *MemoryStore) mutate(id string, fn func(*Session) error) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return fn(sess)
}

func copySession(sess *Session) *Session {
	out := *sess
	out.Context = make(map[string]any, len(sess.Context))
	for k, v := range sess.Context {
		out.Context[k] = v
	}
	out.Messages = append([]Message(nil), sess.Messages...)
	out.Audit = append([]AuditEntry(nil), sess.Audit...)
	if sess.CompletedAt != nil {
		t := *sess.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
