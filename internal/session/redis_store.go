package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore persists sessions as JSON blobs with a TTL, keeping an index of
// active ids for the idle sweep. Writes on one session are serialized with a
// striped in-process lock; the service runs one writer process per session's
// traffic, so no distributed lock is needed.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("practice.internal.session")
	}
	return &RedisStore{
		redis:  client,
		tracer: tracer,
		ttl:    defaultSessionTTL,
		clock:  time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the store clock. Tests only.
func (s *RedisStore) WithClock(clock func() time.Time) *RedisStore {
	s.clock = clock
	return s
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

const activeIndexKey = "sessions:active"

func (s *RedisStore) lockFor(id string) *sync.Mutex {
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
func (s *RedisStore) GetOrCreate(ctx context.Context, id string, params NewSessionParams) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get_or_create")
	defer span.End()

	now := s.clock().UTC()
	if id == "" {
		sess := newSession(params, now)
		if err := s.save(ctx, sess); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := s.redis.SAdd(ctx, activeIndexKey, sess.ID).Err(); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("session: failed to index session: %w", err)
		}
		return sess, nil
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sess.Status == StatusExpired {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()
	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
	}
	return sess, err
}

// Touch implements Store.
func (s *RedisStore) Touch(ctx context.Context, id string) error {
	return s.mutate(ctx, "session.touch", id, func(sess *Session) error {
		now := s.clock().UTC()
		if now.After(sess.LastActivity) {
			sess.LastActivity = now
		}
		return nil
	})
}

// AppendMessage implements Store.
func (s *RedisStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	return s.mutate(ctx, "session.append_message", id, func(sess *Session) error {
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
func (s *RedisStore) AppendAudit(ctx context.Context, id string, event, detail string, data map[string]any) error {
	return s.mutate(ctx, "session.append_audit", id, func(sess *Session) error {
		var floor time.Time
		if n := len(sess.Audit); n > 0 {
			floor = sess.Audit[n-1].Timestamp
		}
		sess.Audit = append(sess.Audit, newAuditEntry(event, detail, data, s.clock().UTC(), floor))
		return nil
	})
}

// MergeContext implements Store.
func (s *RedisStore) MergeContext(ctx context.Context, id string, updates map[string]any) error {
	return s.mutate(ctx, "session.merge_context", id, func(sess *Session) error {
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
func (s *RedisStore) Complete(ctx context.Context, id string) error {
	err := s.mutate(ctx, "session.complete", id, func(sess *Session) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		now := s.clock().UTC()
		sess.Status = StatusCompleted
		sess.CompletedAt = &now
		return nil
	})
	if err != nil {
		return err
	}
	return s.redis.SRem(ctx, activeIndexKey, id).Err()
}

// Expire implements Store.
func (s *RedisStore) Expire(ctx context.Context, id string) error {
	err := s.mutate(ctx, "session.expire", id, func(sess *Session) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		sess.Status = StatusExpired
		return nil
	})
	if err != nil {
		return err
	}
	return s.redis.SRem(ctx, activeIndexKey, id).Err()
}

// IdleSince returns active session ids whose lastActivity is at or before the
// cutoff.
func (s *RedisStore) IdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "session.idle_since")
	defer span.End()

	ids, err := s.redis.SMembers(ctx, activeIndexKey).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to list active sessions: %w", err)
	}

	var idle []string
	for _, id := range ids {
		sess, err := s.load(ctx, id)
		if err != nil {
			continue
		}
		if sess.Status == StatusActive && !sess.LastActivity.After(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle, nil
}

func (s *RedisStore) mutate(ctx context.Context, spanName, id string, fn func(*Session) error) error {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session: failed to load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}
