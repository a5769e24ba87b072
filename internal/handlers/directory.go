package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/atendohq/atendo/internal/activity"
	"github.com/atendohq/atendo/internal/auth"
	"github.com/atendohq/atendo/internal/directory"
)

// DirectoryHandler manages departments and agent accounts.
type DirectoryHandler struct {
	directory *directory.Service
	recorder  ActivityRecorder
	logger    *slog.Logger
}

// NewDirectoryHandler creates a DirectoryHandler.
func NewDirectoryHandler(log *slog.Logger, service *directory.Service, recorder ActivityRecorder) *DirectoryHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DirectoryHandler{
		directory: service,
		recorder:  recorder,
		logger:    log.With(slog.String("handler", "directory")),
	}
}

func (h *DirectoryHandler) Register(e *echo.Echo) {
	departments := e.Group("/api/departments")
	departments.GET("", h.ListDepartments)
	departments.GET("/:id", h.GetDepartment)
	departments.POST("", h.CreateDepartment)
	departments.PUT("/:id/active", h.SetDepartmentActive)

	users := e.Group("/api/users")
	users.GET("", h.ListAgents)
	users.GET("/:id", h.GetAgent)
	users.POST("", h.CreateAgent)
	users.PUT("/:id", h.UpdateAgent)
}

func requireSupervisor(c echo.Context) (auth.Identity, error) {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if !identity.IsSupervisor() {
		return auth.Identity{}, echo.NewHTTPError(http.StatusForbidden, "supervisor role required")
	}
	return identity, nil
}

func (h *DirectoryHandler) ListDepartments(c echo.Context) error {
	items, err := h.directory.ListDepartments(c.Request().Context())
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *DirectoryHandler) GetDepartment(c echo.Context) error {
	dept, err := h.directory.GetDepartment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, dept)
}

func (h *DirectoryHandler) CreateDepartment(c echo.Context) error {
	identity, err := requireSupervisor(c)
	if err != nil {
		return err
	}
	var input directory.CreateDepartmentInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	dept, err := h.directory.CreateDepartment(ctx, input)
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionDepartmentCreated, dept.ID)
	}
	return c.JSON(http.StatusCreated, dept)
}

type setActiveRequest struct {
	Active bool `json:"is_active"`
}

func (h *DirectoryHandler) SetDepartmentActive(c echo.Context) error {
	if _, err := requireSupervisor(c); err != nil {
		return err
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dept, err := h.directory.SetDepartmentActive(c.Request().Context(), c.Param("id"), req.Active)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, dept)
}

func (h *DirectoryHandler) ListAgents(c echo.Context) error {
	if _, err := requireSupervisor(c); err != nil {
		return err
	}
	items, err := h.directory.ListAgents(c.Request().Context())
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *DirectoryHandler) GetAgent(c echo.Context) error {
	if _, err := requireSupervisor(c); err != nil {
		return err
	}
	agent, err := h.directory.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, agent)
}

func (h *DirectoryHandler) CreateAgent(c echo.Context) error {
	identity, err := requireSupervisor(c)
	if err != nil {
		return err
	}
	var input directory.CreateAgentInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domainHTTPError(err)
	}

	ctx := c.Request().Context()
	agent, err := h.directory.CreateAgent(ctx, input, string(hashed))
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionAgentCreated, agent.ID)
	}
	return c.JSON(http.StatusCreated, agent)
}

func (h *DirectoryHandler) UpdateAgent(c echo.Context) error {
	identity, err := requireSupervisor(c)
	if err != nil {
		return err
	}
	var input directory.UpdateAgentInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	agent, err := h.directory.UpdateAgent(ctx, c.Param("id"), input)
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionAgentUpdated, agent.ID)
	}
	return c.JSON(http.StatusOK, agent)
}
