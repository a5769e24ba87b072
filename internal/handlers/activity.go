package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/activity"
)

// ActivityHandler exposes the audit trail to supervisors.
type ActivityHandler struct {
	activity *activity.Service
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(log *slog.Logger, service *activity.Service) *ActivityHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ActivityHandler{
		activity: service,
		logger:   log.With(slog.String("handler", "activity")),
	}
}

func (h *ActivityHandler) Register(e *echo.Echo) {
	e.GET("/api/activity", h.List)
}

func (h *ActivityHandler) List(c echo.Context) error {
	if _, err := requireSupervisor(c); err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.activity.List(c.Request().Context(), activity.ListFilter{
		AgentID: c.QueryParam("agent_id"),
		Action:  c.QueryParam("action"),
		Limit:   limit,
	})
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
