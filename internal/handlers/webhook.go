package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/routing"
)

// Ingestor folds inbound customer messages into conversations.
type Ingestor interface {
	Ingest(ctx context.Context, input routing.IngestInput) (routing.IngestResult, error)
}

// WebhookHandler receives inbound messages from the gateway process. The
// endpoint sits outside JWT auth and is protected by a shared secret instead.
type WebhookHandler struct {
	engine Ingestor
	secret string
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(log *slog.Logger, engine Ingestor, secret string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		engine: engine,
		secret: secret,
		logger: log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/api/webhook_internal", h.Receive)
}

// webhookPayload is the gateway's delivery shape: `from` is the channel
// address, `body` the message text, `author` an optional display name.
type webhookPayload struct {
	From        string `json:"from"`
	Body        string `json:"body"`
	Author      string `json:"author"`
	MessageType string `json:"message_type"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
}

// Receive ingests one inbound customer message. Replays of the same gateway
// delivery produce duplicate messages; the gateway is trusted to deliver
// each message once.
func (h *WebhookHandler) Receive(c echo.Context) error {
	provided := c.Request().Header.Get("X-Webhook-Secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
	}

	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(payload.From) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from is required")
	}
	if strings.TrimSpace(payload.Body) == "" && payload.FilePath == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "body or file is required")
	}

	input := routing.IngestInput{
		Phone:       payload.From,
		Name:        payload.Author,
		Content:     payload.Body,
		MessageType: payload.MessageType,
		FilePath:    payload.FilePath,
		FileName:    payload.FileName,
	}

	result, err := h.engine.Ingest(c.Request().Context(), input)
	if err != nil {
		h.logger.Error("ingest failed",
			slog.String("phone", input.Phone),
			slog.String("error", err.Error()))
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
