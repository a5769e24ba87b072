package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeSocket records frames written by a connection's write loop.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSocket) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSocket) WriteControl(int, []byte, time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) waitFrames(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.frames) >= n {
			frames := make([][]byte, len(f.frames))
			copy(frames, f.frames)
			f.mu.Unlock()
			return frames
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.Fatalf("got %d frames, want at least %d", len(f.frames), n)
	return nil
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func attach(h *Hub, agentID, departmentID string, supervisor bool) (*Connection, *fakeSocket) {
	sock := &fakeSocket{}
	conn := NewConnection(agentID, "Agent "+agentID, departmentID, supervisor, sock)
	h.Attach(conn)
	return conn, sock
}

func TestConversationRoomBroadcast(t *testing.T) {
	t.Parallel()

	h := New(nil)
	defer h.Close()

	member, memberSock := attach(h, "a1", "d1", false)
	_, outsiderSock := attach(h, "a2", "d2", false)

	h.JoinConversation("c1", member)
	// A second join must not duplicate delivery.
	h.JoinConversation("c1", member)

	if n := h.BroadcastToConversation("c1", TypingEvent("c1", "a9", "Nine")); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}

	frames := memberSock.waitFrames(t, 1)
	var ev Event
	if err := json.Unmarshal(frames[0], &ev); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if ev.Type != EventUserTyping || ev.ConversationID != "c1" {
		t.Fatalf("frame = %+v", ev)
	}

	outsiderSock.mu.Lock()
	defer outsiderSock.mu.Unlock()
	if len(outsiderSock.frames) != 0 {
		t.Fatalf("outsider received %d frames", len(outsiderSock.frames))
	}
}

func TestLeaveConversationStopsDelivery(t *testing.T) {
	t.Parallel()

	h := New(nil)
	defer h.Close()

	conn, _ := attach(h, "a1", "d1", false)
	h.JoinConversation("c1", conn)
	h.LeaveConversation("c1", conn)
	// Leaving again is harmless.
	h.LeaveConversation("c1", conn)

	if n := h.BroadcastToConversation("c1", TypingEvent("c1", "a9", "Nine")); n != 0 {
		t.Fatalf("delivered = %d, want 0", n)
	}
}

func TestDepartmentBroadcastReachesMembersAndSupervisors(t *testing.T) {
	t.Parallel()

	h := New(nil)
	defer h.Close()

	_, memberSock := attach(h, "a1", "d1", false)
	_, supervisorSock := attach(h, "boss", "d9", true)
	_, otherSock := attach(h, "a2", "d2", false)

	msg := map[string]any{"id": "m1", "content": "oi"}
	if n := h.BroadcastToDepartment("d1", NewMessageEvent("c1", "d1", msg)); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	memberSock.waitFrames(t, 1)
	supervisorSock.waitFrames(t, 1)

	otherSock.mu.Lock()
	defer otherSock.mu.Unlock()
	if len(otherSock.frames) != 0 {
		t.Fatalf("other department received %d frames", len(otherSock.frames))
	}
}

func TestAttachReplacesPreviousAgentSession(t *testing.T) {
	t.Parallel()

	h := New(nil)
	defer h.Close()

	_, firstSock := attach(h, "a1", "d1", false)
	_, secondSock := attach(h, "a1", "d1", false)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !firstSock.isClosed() {
		time.Sleep(time.Millisecond)
	}
	if !firstSock.isClosed() {
		t.Fatal("previous session was not closed")
	}

	if n := h.BroadcastAll(ConnectionStatusEvent("ready", "")); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	secondSock.waitFrames(t, 1)
}

func TestSlowClientIsDisconnected(t *testing.T) {
	t.Parallel()

	h := New(nil)
	defer h.Close()

	// Never start the write loop so the buffer fills.
	sock := &fakeSocket{}
	conn := NewConnection("a1", "Agent", "d1", false, sock)

	var err error
	for i := 0; i < 200; i++ {
		if err = conn.Send([]byte("x")); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("Send never failed on a full buffer")
	}
	if !sock.isClosed() {
		t.Fatal("slow connection was not closed")
	}
}
