package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Transport is the subset of Client the session drives. Narrowed for tests.
type Transport interface {
	Status(ctx context.Context) (Status, error)
	Send(ctx context.Context, req SendRequest) error
}

// SessionConfig tunes the session's polling and reconnection behavior.
type SessionConfig struct {
	PollInterval time.Duration
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	MaxRetries   int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	return c
}

// Session tracks the gateway's connection state and gates outbound sends on
// it. It polls the gateway, applies exponential backoff while the channel is
// down, and gives up into StateFailed after MaxRetries consecutive failures.
type Session struct {
	transport Transport
	sink      StatusSink
	cfg       SessionConfig
	logger    *slog.Logger

	mu      sync.RWMutex
	state   State
	lastQR  string
	retries int

	// sendMu serializes outbound sends; the channel holds one session and
	// does not tolerate interleaved deliveries.
	sendMu sync.Mutex

	reconnect chan struct{}
}

// NewSession creates a gateway session. sink may be nil.
func NewSession(log *slog.Logger, transport Transport, sink StatusSink, cfg SessionConfig) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		transport: transport,
		sink:      sink,
		cfg:       cfg.withDefaults(),
		logger:    log.With(slog.String("service", "gateway")),
		state:     StateInitializing,
		reconnect: make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// QRCode returns the last pairing code seen, empty once paired.
func (s *Session) QRCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQR
}

// Send delivers an outbound message. Sends are rejected unless the channel
// is ready.
func (s *Session) Send(ctx context.Context, req SendRequest) error {
	if s.State() != StateReady {
		return fmt.Errorf("%w: state %s", ErrChannelUnavailable, s.State())
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.transport.Send(ctx, req)
}

// RequestReconnect restarts the retry cycle after the session gave up.
// It is a no-op unless the session is failed.
func (s *Session) RequestReconnect() bool {
	s.mu.Lock()
	if s.state != StateFailed {
		s.mu.Unlock()
		return false
	}
	s.retries = 0
	s.mu.Unlock()
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
	return true
}

// Run polls the gateway until ctx is canceled. It blocks and is meant to be
// started on its own goroutine.
func (s *Session) Run(ctx context.Context) {
	backoff := s.cfg.BackoffMin
	for {
		status, err := s.transport.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.recordFailure(err) {
				if !s.awaitReconnect(ctx) {
					return
				}
				backoff = s.cfg.BackoffMin
				continue
			}
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, s.cfg.BackoffMax)
			continue
		}

		if s.apply(status) {
			if !s.awaitReconnect(ctx) {
				return
			}
			backoff = s.cfg.BackoffMin
			continue
		}
		backoff = s.cfg.BackoffMin
		if !sleep(ctx, s.cfg.PollInterval) {
			return
		}
	}
}

// apply folds one gateway status report into the session state. It returns
// true when the session just gave up and must wait for a reconnect request.
func (s *Session) apply(status Status) bool {
	switch {
	case status.Connected || strings.EqualFold(status.Status, "ready"):
		s.transition(StateReady, "")
		s.setQR("")
	case status.QRCode != "":
		s.transition(StateQRPending, "scan pairing code")
		s.setQR(status.QRCode)
	default:
		// Gateway answered but the channel is down: keep retrying.
		return s.recordFailure(fmt.Errorf("channel reported %q", status.Status))
	}
	return false
}

// recordFailure counts one failed poll and reports whether the session just
// gave up into StateFailed.
func (s *Session) recordFailure(err error) bool {
	s.mu.Lock()
	s.retries++
	retries := s.retries
	s.mu.Unlock()

	if retries > s.cfg.MaxRetries {
		s.transition(StateFailed, "reconnect attempts exhausted")
		return true
	}
	s.logger.Warn("gateway unreachable",
		slog.Int("attempt", retries),
		slog.Int("max", s.cfg.MaxRetries),
		slog.String("error", err.Error()))
	s.transition(StateRetrying, err.Error())
	return false
}

func (s *Session) awaitReconnect(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.reconnect:
		s.transition(StateInitializing, "reconnect requested")
		return true
	}
}

func (s *Session) transition(next State, detail string) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = next
	if next == StateReady {
		s.retries = 0
	}
	s.mu.Unlock()

	s.logger.Info("gateway state changed",
		slog.String("from", string(prev)),
		slog.String("to", string(next)))
	if s.sink != nil {
		s.sink.ConnectionStatus(next, detail)
	}
}

func (s *Session) setQR(code string) {
	s.mu.Lock()
	changed := code != s.lastQR
	s.lastQR = code
	s.mu.Unlock()
	if changed && code != "" && s.sink != nil {
		s.sink.QRCode(code)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
