package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu      sync.Mutex
	status  Status
	err     error
	sent    []SendRequest
	sendErr error
}

func (f *fakeTransport) set(status Status, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.err = err
}

func (f *fakeTransport) Status(context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeTransport) Send(_ context.Context, req SendRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return f.sendErr
}

type recordingSink struct {
	mu     sync.Mutex
	states []State
	qrs    []string
}

func (r *recordingSink) ConnectionStatus(state State, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingSink) QRCode(data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrs = append(r.qrs, data)
}

func fastConfig() SessionConfig {
	return SessionConfig{
		PollInterval: time.Millisecond,
		BackoffMin:   time.Millisecond,
		BackoffMax:   2 * time.Millisecond,
		MaxRetries:   3,
	}
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}

func TestSendRejectedUntilReady(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	s := NewSession(nil, transport, nil, fastConfig())

	err := s.Send(context.Background(), SendRequest{Phone: "5511999", Message: "hi"})
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("err = %v, want ErrChannelUnavailable", err)
	}
}

func TestStatusPollDrivesStates(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	transport.set(Status{QRCode: "qr-1"}, nil)
	sink := &recordingSink{}
	s := NewSession(nil, transport, sink, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitForState(t, s, StateQRPending)
	if s.QRCode() != "qr-1" {
		t.Fatalf("QRCode = %q", s.QRCode())
	}

	transport.set(Status{Connected: true}, nil)
	waitForState(t, s, StateReady)
	if s.QRCode() != "" {
		t.Fatalf("QRCode should clear once paired, got %q", s.QRCode())
	}

	if err := s.Send(ctx, SendRequest{Phone: "5511999", Message: "hi"}); err != nil {
		t.Fatalf("Send while ready: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.qrs) != 1 || sink.qrs[0] != "qr-1" {
		t.Fatalf("qr events = %v", sink.qrs)
	}
}

func TestRetriesExhaustToFailedThenReconnect(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	transport.set(Status{}, errors.New("connection refused"))
	s := NewSession(nil, transport, nil, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitForState(t, s, StateFailed)

	// Failed sessions stay failed until asked to reconnect.
	time.Sleep(10 * time.Millisecond)
	if s.State() != StateFailed {
		t.Fatalf("state left failed without a reconnect request: %s", s.State())
	}

	transport.set(Status{Connected: true}, nil)
	if !s.RequestReconnect() {
		t.Fatal("RequestReconnect returned false on a failed session")
	}
	waitForState(t, s, StateReady)

	if s.RequestReconnect() {
		t.Fatal("RequestReconnect should be a no-op when not failed")
	}
}
