package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/activity"
	"github.com/atendohq/atendo/internal/auth"
	"github.com/atendohq/atendo/internal/contacts"
	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/message"
	"github.com/atendohq/atendo/internal/routing"
)

// ConversationEngine is the routing engine surface the handler drives.
type ConversationEngine interface {
	SendOutbound(ctx context.Context, input routing.OutboundInput) (routing.OutboundResult, error)
	Transfer(ctx context.Context, input routing.TransferInput) (routing.TransferOutcome, error)
	Claim(ctx context.Context, conversationID, agentID string, expectedVersion int64) (conversation.Conversation, error)
	Close(ctx context.Context, conversationID, agentName string) (conversation.Conversation, error)
}

// ConversationReader reads conversation state for display.
type ConversationReader interface {
	Get(ctx context.Context, id string) (conversation.Conversation, error)
	List(ctx context.Context, filter conversation.ListFilter) ([]conversation.Conversation, error)
	ListTransfers(ctx context.Context, conversationID string) ([]conversation.TransferRecord, error)
}

// MessageReader reads conversation transcripts.
type MessageReader interface {
	ListByConversation(ctx context.Context, conversationID string) ([]message.Message, error)
}

// ContactReader resolves contacts for display.
type ContactReader interface {
	Get(ctx context.Context, id string) (contacts.Contact, error)
}

// ConversationsHandler exposes the conversation REST API.
type ConversationsHandler struct {
	engine        ConversationEngine
	conversations ConversationReader
	messages      MessageReader
	contacts      ContactReader
	recorder      ActivityRecorder
	logger        *slog.Logger
}

// NewConversationsHandler creates a ConversationsHandler.
func NewConversationsHandler(log *slog.Logger, engine ConversationEngine, conversations ConversationReader, messages MessageReader, contactReader ContactReader, recorder ActivityRecorder) *ConversationsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationsHandler{
		engine:        engine,
		conversations: conversations,
		messages:      messages,
		contacts:      contactReader,
		recorder:      recorder,
		logger:        log.With(slog.String("handler", "conversations")),
	}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/conversations")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/:id/transfers", h.ListTransfers)
	group.POST("/:id/messages", h.PostMessage)
	group.POST("/:id/transfer", h.Transfer)
	group.POST("/:id/claim", h.Claim)
	group.POST("/:id/close", h.Close)
}

// canAccess reports whether the agent may see the conversation. Supervisors
// see everything; agents see their own department plus anything assigned to
// them directly.
func canAccess(identity auth.Identity, conv conversation.Conversation) bool {
	if identity.IsSupervisor() {
		return true
	}
	return conv.DepartmentID == identity.DepartmentID || conv.AgentID == identity.AgentID
}

// List returns conversations visible to the caller. Non-supervisors are
// always scoped to their own department.
func (h *ConversationsHandler) List(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	filter := conversation.ListFilter{
		DepartmentID: strings.TrimSpace(c.QueryParam("department_id")),
		Status:       strings.TrimSpace(c.QueryParam("status")),
	}
	if !identity.IsSupervisor() {
		filter.DepartmentID = identity.DepartmentID
	}

	items, err := h.conversations.List(c.Request().Context(), filter)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": items})
}

type conversationDetail struct {
	Conversation conversation.Conversation `json:"conversation"`
	Contact      contacts.Contact          `json:"contact"`
	Messages     []message.Message         `json:"messages"`
}

// Get returns a conversation with its contact and full transcript.
func (h *ConversationsHandler) Get(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	if !canAccess(identity, conv) {
		return echo.NewHTTPError(http.StatusForbidden, "conversation belongs to another department")
	}

	contact, err := h.contacts.Get(ctx, conv.ContactID)
	if err != nil {
		return domainHTTPError(err)
	}
	msgs, err := h.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, conversationDetail{Conversation: conv, Contact: contact, Messages: msgs})
}

// ListTransfers returns a conversation's routing history.
func (h *ConversationsHandler) ListTransfers(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	if !canAccess(identity, conv) {
		return echo.NewHTTPError(http.StatusForbidden, "conversation belongs to another department")
	}
	items, err := h.conversations.ListTransfers(ctx, conv.ID)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

type postMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
}

// PostMessage appends an agent message and relays it to the customer.
func (h *ConversationsHandler) PostMessage(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" && req.FilePath == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content or file is required")
	}

	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	if !canAccess(identity, conv) {
		return echo.NewHTTPError(http.StatusForbidden, "conversation belongs to another department")
	}

	result, err := h.engine.SendOutbound(ctx, routing.OutboundInput{
		ConversationID: conv.ID,
		AgentID:        identity.AgentID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		FilePath:       req.FilePath,
		FileName:       req.FileName,
	})
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionMessageSent, conv.ID)
	}
	return c.JSON(http.StatusCreated, result)
}

type transferRequest struct {
	ToDepartmentID  string `json:"to_department_id"`
	ToAgentID       string `json:"to_agent_id"`
	ExpectedVersion int64  `json:"expected_version"`
	Reason          string `json:"reason"`
}

// Transfer moves a conversation to another department or agent.
func (h *ConversationsHandler) Transfer(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	outcome, err := h.engine.Transfer(ctx, routing.TransferInput{
		ConversationID:  c.Param("id"),
		ExpectedVersion: req.ExpectedVersion,
		ToDepartmentID:  req.ToDepartmentID,
		ToAgentID:       req.ToAgentID,
		RequestedBy:     identity.AgentID,
		Reason:          req.Reason,
	})
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionTransfer, outcome.Conversation.ID)
	}
	return c.JSON(http.StatusOK, outcome)
}

type claimRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

// Claim assigns the conversation to the calling agent.
func (h *ConversationsHandler) Claim(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	updated, err := h.engine.Claim(ctx, c.Param("id"), identity.AgentID, req.ExpectedVersion)
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionConversationClaimed, updated.ID)
	}
	return c.JSON(http.StatusOK, updated)
}

// Close ends a conversation.
func (h *ConversationsHandler) Close(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	if !canAccess(identity, conv) {
		return echo.NewHTTPError(http.StatusForbidden, "conversation belongs to another department")
	}

	closed, err := h.engine.Close(ctx, conv.ID, identity.Name)
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionConversationClosed, closed.ID)
	}
	return c.JSON(http.StatusOK, closed)
}
