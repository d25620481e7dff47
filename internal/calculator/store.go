package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-chi-calculator/internal/keypad"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or evicted session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps the live keypad sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	eval   keypad.Evaluator
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewStore returns an empty store. Sessions idle for longer than ttl are
// evicted by Sweep; a zero ttl disables eviction.
func NewStore(eval keypad.Evaluator, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		eval:     eval,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new session in the fresh state.
func (st *Store) Create(ctx context.Context) *Session {
	id := uuid.NewString()
	logger := st.logger.With(zap.String("session_id", id))

	m := keypad.New(
		newInstrumentedEvaluator(st.eval, logger),
		keypad.WithLogger(logger),
		keypad.WithCommitObserver(func(e keypad.Entry) {
			logger.Debug("entry committed",
				zap.String("operator", e.Operator.String()),
				zap.String("operand", e.Operand.Text),
			)
		}),
	)
	s := newSession(id, m, st.now())

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	sessionsGauge.Add(ctx, 1)
	logger.Info("session created")
	return s
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

// Delete closes and removes the session.
func (st *Store) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.Close()
	sessionsGauge.Add(ctx, -1)
	st.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle since before now-ttl and returns how many.
func (st *Store) Sweep(ctx context.Context) int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	var stale []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range stale {
		s.Close()
		sessionsGauge.Add(ctx, -1)
	}
	if len(stale) > 0 {
		st.logger.Info("idle sessions evicted", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done. It leaves the remaining
// sessions open; call Close once in-flight requests have drained.
func (st *Store) Run(ctx context.Context) error {
	interval := st.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.Sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close closes every session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		sessionsGauge.Add(context.Background(), -int64(len(sessions)))
	}
}
