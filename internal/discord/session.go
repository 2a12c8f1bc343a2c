package discord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fpt/discord-chat/internal/audit"
	"github.com/fpt/discord-chat/pkg/logger"
)

// sessionState tracks where a gateway session is in its lifecycle.
type sessionState int

const (
	stateIdle sessionState = iota
	stateConnecting
	stateReady
	stateFailed
	stateTimedOut
	stateClosing
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timed_out"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// readySignal is a one-shot latch. Setting it more than once is a no-op,
// which absorbs repeated READY events after gateway reconnects.
type readySignal struct {
	once sync.Once
	ch   chan struct{}
}

func newReadySignal() *readySignal {
	return &readySignal{ch: make(chan struct{})}
}

func (r *readySignal) set() {
	r.once.Do(func() { close(r.ch) })
}

func (r *readySignal) done() <-chan struct{} { return r.ch }

// session owns one gateway connection from dial to teardown. Connection
// establishment runs in the background; callers block on awaitReady before
// issuing reads. close is idempotent, so calling it from several goroutines
// or on every exit path is fine.
type session struct {
	backend Backend
	log     *logger.Logger
	aud     *audit.Logger

	ready   *readySignal
	openErr chan error

	mu        sync.Mutex
	state     sessionState
	closeOnce sync.Once
}

// openSession validates the token, dials the backend and starts connecting
// in the background. It returns as soon as the connection attempt is
// underway.
func openSession(dial DialFunc, token string, log *logger.Logger, aud *audit.Logger) (*session, error) {
	if strings.TrimSpace(token) == "" {
		aud.AuthAttempt(false, "Discord", "empty bot token")
		return nil, &AuthError{Reason: "bot token is empty"}
	}

	s := &session{
		log:     log,
		aud:     aud,
		ready:   newReadySignal(),
		openErr: make(chan error, 1),
		state:   stateIdle,
	}

	backend, err := dial(token, s.markReady)
	if err != nil {
		s.setState(stateFailed)
		return nil, err
	}
	s.backend = backend
	s.setState(stateConnecting)

	go func() {
		if err := backend.Open(); err != nil {
			cerr := classifyConnectError(err)
			if _, ok := cerr.(*AuthError); ok {
				aud.AuthAttempt(false, "Discord", err.Error())
			}
			s.setState(stateFailed)
			s.openErr <- cerr
		}
	}()

	return s, nil
}

// markReady flips the session to ready. Runs on the gateway event
// goroutine.
func (s *session) markReady() {
	s.mu.Lock()
	first := s.state == stateConnecting
	if first {
		s.state = stateReady
	}
	s.mu.Unlock()
	if first {
		s.log.Info("Discord session ready")
		s.aud.AuthAttempt(true, "Discord", "")
	}
	s.ready.set()
}

// awaitReady blocks until the session is ready, the connection attempt
// fails, the readiness window expires, or ctx is done.
func (s *session) awaitReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready.done():
		return nil
	case err := <-s.openErr:
		return err
	case <-timer.C:
		s.setState(stateTimedOut)
		return &ConnectTimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close tears the session down. Idempotent and safe to call concurrently
// from any state, including when the connection never came up.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.setState(stateClosing)
		if err := s.backend.Close(); err != nil {
			s.log.Debug("gateway close failed", "error", err)
		}
		s.setState(stateClosed)
	})
}

func (s *session) setState(st sessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *session) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
