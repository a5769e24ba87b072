package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/gateway"
)

// GatewayHandler exposes channel status and the manual reconnect control.
type GatewayHandler struct {
	session *gateway.Session
	logger  *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(log *slog.Logger, session *gateway.Session) *GatewayHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GatewayHandler{
		session: session,
		logger:  log.With(slog.String("handler", "gateway")),
	}
}

func (h *GatewayHandler) Register(e *echo.Echo) {
	e.GET("/api/gateway/status", h.Status)
	e.POST("/api/gateway/reconnect", h.Reconnect)
}

type gatewayStatusResponse struct {
	State  string `json:"state"`
	QRCode string `json:"qr_code,omitempty"`
}

func (h *GatewayHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, gatewayStatusResponse{
		State:  string(h.session.State()),
		QRCode: h.session.QRCode(),
	})
}

// Reconnect restarts the retry cycle after the channel gave up.
func (h *GatewayHandler) Reconnect(c echo.Context) error {
	identity, err := requireSupervisor(c)
	if err != nil {
		return err
	}
	if !h.session.RequestReconnect() {
		return echo.NewHTTPError(http.StatusConflict, "session is not in a failed state")
	}
	h.logger.Info("reconnect requested", slog.String("agent_id", identity.AgentID))
	return c.JSON(http.StatusAccepted, map[string]string{"status": "reconnecting"})
}
