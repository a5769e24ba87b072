package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/auth"
	"github.com/atendohq/atendo/internal/contacts"
)

// ContactsHandler exposes the contact book.
type ContactsHandler struct {
	contacts *contacts.Service
	logger   *slog.Logger
}

// NewContactsHandler creates a ContactsHandler.
func NewContactsHandler(log *slog.Logger, service *contacts.Service) *ContactsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContactsHandler{
		contacts: service,
		logger:   log.With(slog.String("handler", "contacts")),
	}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/contacts")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
}

func (h *ContactsHandler) List(c echo.Context) error {
	items, err := h.contacts.List(c.Request().Context())
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) Get(c echo.Context) error {
	contact, err := h.contacts.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHandler) Create(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var input contacts.CreateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	input.CreatedBy = identity.AgentID

	contact, err := h.contacts.Create(c.Request().Context(), input)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusCreated, contact)
}
