package session

import (
	"context"
	"errors"
	"time"

	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

// IdleLister is the subset of store behavior the sweeper needs beyond Store.
type IdleLister interface {
	IdleSince(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Archiver receives terminal sessions after the sweeper expires them.
type Archiver interface {
	ArchiveSession(ctx context.Context, sess *Session) error
}

// Sweeper expires sessions that have been idle past the configured window and
// hands them to the archiver. Expiry is one-way; a swept session id presented
// again gets ErrSessionExpired from the store.
type Sweeper struct {
	store    Store
	lister   IdleLister
	archiver Archiver
	idle     time.Duration
	every    time.Duration
	logger   *logging.Logger
	clock    func() time.Time
	done     chan struct{}
	stopped  chan struct{}
}

// NewSweeper creates a sweeper over the given store. The archiver may be nil
// when transcript archival is not configured.
func NewSweeper(store Store, lister IdleLister, archiver Archiver, idle, every time.Duration, logger *logging.Logger) *Sweeper {
	if store == nil {
		panic("session: sweeper store cannot be nil")
	}
	if lister == nil {
		panic("session: sweeper lister cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	if every <= 0 {
		every = time.Minute
	}
	return &Sweeper{
		store:    store,
		lister:   lister,
		archiver: archiver,
		idle:     idle,
		every:    every,
		logger:   logger,
		clock:    time.Now,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.done)
	<-s.stopped
}

// SweepOnce expires every session idle past the window and returns how many
// were expired.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	cutoff := s.clock().UTC().Add(-s.idle)
	ids, err := s.lister.IdleSince(ctx, cutoff)
	if err != nil {
		s.logger.Error("session sweep failed to list idle sessions", "error", err)
		return 0
	}

	expired := 0
	for _, id := range ids {
		if err := s.store.Expire(ctx, id); err != nil {
			// A concurrently completed session is not an error worth logging.
			if !errors.Is(err, ErrSessionClosed) {
				s.logger.Error("session sweep failed to expire session", "session_id", id, "error", err)
			}
			continue
		}
		expired++
		s.logger.Info("session expired after idle window", "session_id", id, "idle_window", s.idle.String())

		if s.archiver == nil {
			continue
		}
		sess, err := s.store.Get(ctx, id)
		if err != nil {
			s.logger.Error("session sweep failed to load session for archival", "session_id", id, "error", err)
			continue
		}
		if err := s.archiver.ArchiveSession(ctx, sess); err != nil {
			s.logger.Error("session archival failed", "session_id", id, "error", err)
		}
	}
	return expired
}
