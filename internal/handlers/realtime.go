package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/auth"
	"github.com/atendohq/atendo/internal/hub"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Agents connect from the dashboard origin behind the same proxy.
		return true
	},
}

const defaultReadTimeout = 60 * time.Second

// RealtimeHandler upgrades agent connections and processes their frames.
type RealtimeHandler struct {
	hub    *hub.Hub
	secret string
	logger *slog.Logger
}

// NewRealtimeHandler creates a RealtimeHandler.
func NewRealtimeHandler(log *slog.Logger, h *hub.Hub, jwtSecret string) *RealtimeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RealtimeHandler{
		hub:    h,
		secret: jwtSecret,
		logger: log.With(slog.String("handler", "realtime")),
	}
}

func (h *RealtimeHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Handle)
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Handle upgrades the connection and processes frames until the agent
// disconnects. The websocket authenticates with a `token` query parameter
// since browsers cannot set headers on the upgrade request.
func (h *RealtimeHandler) Handle(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		identity, err = auth.ParseToken(c.QueryParam("token"), h.secret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the response; just log and return.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}

	conn := hub.NewConnection(identity.AgentID, identity.Name, identity.DepartmentID, identity.IsSupervisor(), ws)
	h.hub.Attach(conn)
	defer func() {
		h.hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	})

	if payload, err := json.Marshal(ackFrame{Type: "connected"}); err == nil {
		_ = conn.Send(payload)
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		h.dispatch(conn, identity, frame)
	}
}

func (h *RealtimeHandler) dispatch(conn *hub.Connection, identity auth.Identity, frame inboundFrame) {
	if frame.ConversationID == "" {
		return
	}
	switch frame.Type {
	case "join_conversation":
		h.hub.JoinConversation(frame.ConversationID, conn)
		if payload, err := json.Marshal(ackFrame{Type: "joined", ConversationID: frame.ConversationID}); err == nil {
			_ = conn.Send(payload)
		}
	case "leave_conversation":
		h.hub.LeaveConversation(frame.ConversationID, conn)
	case "typing":
		h.hub.BroadcastToConversation(frame.ConversationID, hub.TypingEvent(frame.ConversationID, identity.AgentID, identity.Name))
	case "stop_typing":
		h.hub.BroadcastToConversation(frame.ConversationID, hub.StopTypingEvent(frame.ConversationID, identity.AgentID))
	}
}
