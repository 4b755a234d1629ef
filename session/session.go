package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
)

// State is the connection lifecycle state of a Session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type connectAttempt struct {
	done    chan struct{}
	err     error
	aborted bool
}

// Session owns exactly one native billing connection. Connect is
// single-flight: callers racing an in-flight attempt await its result rather
// than starting a second native connect. The session never retries on its
// own; reconnection and backoff are caller policy.
type Session struct {
	log    *zap.Logger
	native billing.Native

	mu           sync.Mutex
	state        State
	inflight     *connectAttempt
	lostHandlers []func()
}

func New(log *zap.Logger, native billing.Native) *Session {
	return &Session{
		log:    log,
		native: native,
		state:  StateDisconnected,
	}
}

// OnServiceLost registers a handler invoked when the native billing service
// drops an established connection. Handlers run once per loss event.
func (s *Session) OnServiceLost(fn func()) {
	s.mu.Lock()
	s.lostHandlers = append(s.lostHandlers, fn)
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// Connect transitions the session to Connected, performing at most one
// native connect attempt regardless of the number of concurrent callers.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()

	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}

	if attempt := s.inflight; attempt != nil {
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	s.inflight = attempt
	s.state = StateConnecting
	s.mu.Unlock()

	err := s.native.Connect(ctx, s.handleServiceLost)

	s.mu.Lock()
	aborted := attempt.aborted
	teardownNative := false
	if aborted {
		// Disconnect ran while the attempt was in flight. The session
		// stays Disconnected; every caller joined to this attempt gets an
		// error, and any native connection the attempt established is
		// torn down unless a newer attempt owns the handle now.
		if err != nil {
			attempt.err = err
		} else {
			attempt.err = billing.NewKindError(billing.ErrorServiceUnavailable, "connection closed while connecting")
			teardownNative = s.inflight == nil && s.state == StateDisconnected
		}
	} else {
		s.inflight = nil
		attempt.err = err
		if err != nil {
			s.state = StateFailed
		} else {
			s.state = StateConnected
		}
	}
	s.mu.Unlock()

	close(attempt.done)

	if teardownNative {
		s.native.Disconnect()
		s.log.Debug("Discarded billing connection established after disconnect")
		return attempt.err
	}
	if aborted {
		return attempt.err
	}

	if err != nil {
		s.log.Warn("Billing service connect failed", zap.Error(err))
		return err
	}

	s.log.Debug("Billing service connected", zap.String("platform", s.native.Platform().String()))
	return nil
}

// Disconnect tears down the native connection and moves to Disconnected.
// Safe to call in any state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state == StateConnected
	if s.inflight != nil {
		s.inflight.aborted = true
		s.inflight = nil
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	if wasConnected {
		s.native.Disconnect()
	}
}

func (s *Session) handleServiceLost() {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	handlers := make([]func(), len(s.lostHandlers))
	copy(handlers, s.lostHandlers)
	s.mu.Unlock()

	s.log.Warn("Billing service connection lost")

	for _, fn := range handlers {
		fn()
	}
}
