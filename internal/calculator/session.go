package calculator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go-chi-calculator/internal/keypad"
)

// ErrSessionClosed is returned by Session.Do once the session is closed.
var ErrSessionClosed = errors.New("session closed")

// request is one unit of work for a session's worker.
type request struct {
	ctx  context.Context
	fn   func(ctx context.Context, m *keypad.Machine)
	done chan bool
}

// Session owns a keypad machine. All access goes through a single worker
// goroutine fed by a channel, so requests are applied one at a time and in
// arrival order.
type Session struct {
	ID string

	machine  *keypad.Machine
	requests chan request
	quit     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	lastSeen atomic.Int64
}

func newSession(id string, m *keypad.Machine, now time.Time) *Session {
	s := &Session{
		ID:       id,
		machine:  m,
		requests: make(chan request, 16),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	s.touch(now)
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case req := <-s.requests:
			if req.ctx.Err() != nil {
				req.done <- false
				continue
			}
			req.fn(req.ctx, s.machine)
			req.done <- true
		case <-s.quit:
			return
		}
	}
}

// Do runs fn on the session's machine and waits for it to finish. fn must
// not retain the machine.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, m *keypad.Machine)) error {
	req := request{ctx: ctx, fn: fn, done: make(chan bool, 1)}

	select {
	case s.requests <- req:
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case ran := <-req.done:
		if !ran {
			return ctx.Err()
		}
		return nil
	case <-s.stopped:
		select {
		case ran := <-req.done:
			if ran {
				return nil
			}
		default:
		}
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker. Pending requests fail with ErrSessionClosed.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the time of the session's last lookup.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}
