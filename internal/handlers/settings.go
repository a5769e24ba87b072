package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/activity"
	"github.com/atendohq/atendo/internal/settings"
)

// SettingsHandler exposes workspace preferences.
type SettingsHandler struct {
	settings *settings.Service
	recorder ActivityRecorder
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(log *slog.Logger, service *settings.Service, recorder ActivityRecorder) *SettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{
		settings: service,
		recorder: recorder,
		logger:   log.With(slog.String("handler", "settings")),
	}
}

func (h *SettingsHandler) Register(e *echo.Echo) {
	e.GET("/api/settings", h.Get)
	e.PUT("/api/settings", h.Upsert)
}

func (h *SettingsHandler) Get(c echo.Context) error {
	values, err := h.settings.All(c.Request().Context())
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, values)
}

func (h *SettingsHandler) Upsert(c echo.Context) error {
	identity, err := requireSupervisor(c)
	if err != nil {
		return err
	}
	var req settings.UpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	values, err := h.settings.Upsert(ctx, req)
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionSettingsChanged, "")
	}
	return c.JSON(http.StatusOK, values)
}
