package hub

import (
	"log/slog"
	"sync"
)

func conversationRoom(id string) string { return "conversation:" + id }
func departmentRoom(id string) string   { return "department:" + id }

// Hub tracks agent websocket sessions and logical rooms, keeping one active
// socket per agent while allowing efficient fan-out to room members.
//
// Every connection is auto-joined to its department's room. Supervisors
// additionally receive every department broadcast regardless of membership.
type Hub struct {
	logger *slog.Logger

	mu            sync.RWMutex
	sessions      map[string]*Connection            // sessionID -> connection
	agentSessions map[string]string                 // agentID -> sessionID
	rooms         map[string]map[string]*Connection // room -> sessionID -> connection
	sessionRooms  map[string]map[string]struct{}    // sessionID -> set of rooms
	supervisors   map[string]*Connection            // sessionID -> connection
}

// New constructs an initialized Hub.
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		logger:        log.With(slog.String("service", "hub")),
		sessions:      make(map[string]*Connection),
		agentSessions: make(map[string]string),
		rooms:         make(map[string]map[string]*Connection),
		sessionRooms:  make(map[string]map[string]struct{}),
		supervisors:   make(map[string]*Connection),
	}
}

// Attach registers a connection for the given agent. An earlier session for
// the same agent is closed after the swap.
func (h *Hub) Attach(conn *Connection) {
	var previous *Connection

	h.mu.Lock()
	if existingID, ok := h.agentSessions[conn.AgentID]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}

	h.sessions[conn.ID] = conn
	h.agentSessions[conn.AgentID] = conn.ID
	h.sessionRooms[conn.ID] = make(map[string]struct{})
	if conn.Supervisor {
		h.supervisors[conn.ID] = conn
	}
	if conn.DepartmentID != "" {
		h.joinLocked(departmentRoom(conn.DepartmentID), conn)
	}
	h.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// JoinConversation subscribes the connection to a conversation room.
// Joining twice is a no-op.
func (h *Hub) JoinConversation(conversationID string, conn *Connection) {
	h.mu.Lock()
	if _, ok := h.sessions[conn.ID]; ok {
		h.joinLocked(conversationRoom(conversationID), conn)
	}
	h.mu.Unlock()
}

// LeaveConversation unsubscribes the connection from a conversation room.
// Leaving a room it is not in is a no-op.
func (h *Hub) LeaveConversation(conversationID string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(conversationRoom(conversationID), conn.ID)
	h.mu.Unlock()
}

// BroadcastToConversation delivers the event to every member of the
// conversation room. Returns the number of connections written.
func (h *Hub) BroadcastToConversation(conversationID string, ev Event) int {
	return h.broadcastRoom(conversationRoom(conversationID), ev)
}

// BroadcastToDepartment delivers the event to the department room plus every
// connected supervisor.
func (h *Hub) BroadcastToDepartment(departmentID string, ev Event) int {
	payload, err := ev.Marshal()
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", ev.Type), slog.String("error", err.Error()))
		return 0
	}

	h.mu.RLock()
	targets := make(map[string]*Connection)
	for id, conn := range h.rooms[departmentRoom(departmentID)] {
		targets[id] = conn
	}
	for id, conn := range h.supervisors {
		targets[id] = conn
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if conn.Send(payload) == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll delivers the event to every tracked connection.
func (h *Hub) BroadcastAll(ev Event) int {
	payload, err := ev.Marshal()
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", ev.Type), slog.String("error", err.Error()))
		return 0
	}

	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if conn.Send(payload) == nil {
			delivered++
		}
	}
	return delivered
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.agentSessions = make(map[string]string)
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.supervisors = make(map[string]*Connection)
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) broadcastRoom(room string, ev Event) int {
	payload, err := ev.Marshal()
	if err != nil {
		h.logger.Error("marshal event", slog.String("type", ev.Type), slog.String("error", err.Error()))
		return 0
	}

	h.mu.RLock()
	members := make([]*Connection, 0, len(h.rooms[room]))
	for _, conn := range h.rooms[room] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if conn.Send(payload) == nil {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) joinLocked(room string, conn *Connection) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn

	memberships := h.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[conn.ID] = memberships
	}
	memberships[room] = struct{}{}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	delete(h.supervisors, sessionID)

	if current, ok := h.agentSessions[conn.AgentID]; ok && current == sessionID {
		delete(h.agentSessions, conn.AgentID)
	}

	for room := range h.sessionRooms[sessionID] {
		h.leaveLocked(room, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(room string, sessionID string) {
	if sessionID == "" {
		return
	}
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, room)
		if len(memberships) == 0 {
			delete(h.sessionRooms, sessionID)
		}
	}
}
