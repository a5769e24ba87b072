package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/gateway"
)

// DashboardStats is the statistics source backing the dashboard.
type DashboardStats interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// MessageStats counts recent message volume.
type MessageStats interface {
	CountSince(ctx context.Context, cutoff string) (int64, error)
}

// AgentStats counts agent accounts.
type AgentStats interface {
	CountAgents(ctx context.Context) (int64, error)
}

// ChannelStatus exposes the gateway session state.
type ChannelStatus interface {
	State() gateway.State
}

// DashboardHandler aggregates workspace statistics for supervisors.
type DashboardHandler struct {
	conversations DashboardStats
	messages      MessageStats
	agents        AgentStats
	channel       ChannelStatus
	logger        *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(log *slog.Logger, conversations DashboardStats, messages MessageStats, agents AgentStats, channel ChannelStatus) *DashboardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DashboardHandler{
		conversations: conversations,
		messages:      messages,
		agents:        agents,
		channel:       channel,
		logger:        log.With(slog.String("handler", "dashboard")),
	}
}

func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/api/dashboard", h.Stats)
}

type dashboardResponse struct {
	Conversations map[string]int64 `json:"conversations"`
	MessagesToday int64            `json:"messages_24h"`
	Agents        int64            `json:"agents"`
	ChannelState  string           `json:"channel_state"`
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	if _, err := requireSupervisor(c); err != nil {
		return err
	}
	ctx := c.Request().Context()

	byStatus, err := h.conversations.CountByStatus(ctx)
	if err != nil {
		return domainHTTPError(err)
	}
	messages, err := h.messages.CountSince(ctx, "24 hours")
	if err != nil {
		return domainHTTPError(err)
	}
	agents, err := h.agents.CountAgents(ctx)
	if err != nil {
		return domainHTTPError(err)
	}

	return c.JSON(http.StatusOK, dashboardResponse{
		Conversations: byStatus,
		MessagesToday: messages,
		Agents:        agents,
		ChannelState:  string(h.channel.State()),
	})
}
