package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/contacts"
	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/directory"
	"github.com/atendohq/atendo/internal/gateway"
	"github.com/atendohq/atendo/internal/message"
	"github.com/atendohq/atendo/internal/routing"
	"github.com/atendohq/atendo/internal/settings"
)

// domainHTTPError maps domain sentinel errors onto HTTP status codes so every
// handler reports failures the same way.
func domainHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, directory.ErrDepartmentNotFound),
		errors.Is(err, directory.ErrAgentNotFound),
		errors.Is(err, message.ErrMessageNotFound),
		errors.Is(err, contacts.ErrContactNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, conversation.ErrVersionConflict),
		errors.Is(err, conversation.ErrConversationClosed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, routing.ErrInvalidTarget),
		errors.Is(err, routing.ErrNoTarget),
		errors.Is(err, message.ErrEmptyMessage),
		errors.Is(err, settings.ErrUnknownKey):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrChannelUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
