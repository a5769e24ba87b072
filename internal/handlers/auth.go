package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/atendohq/atendo/internal/activity"
	"github.com/atendohq/atendo/internal/auth"
	"github.com/atendohq/atendo/internal/directory"
)

// ActivityRecorder is the audit trail sink handlers write to.
type ActivityRecorder interface {
	Record(ctx context.Context, agentID, action, detail string)
}

// AgentDirectory resolves login credentials to agents and applies profile
// updates.
type AgentDirectory interface {
	GetAgentByUsername(ctx context.Context, username string) (directory.Agent, error)
	GetAgent(ctx context.Context, id string) (directory.Agent, error)
	UpdateAgent(ctx context.Context, id string, input directory.UpdateAgentInput) (directory.Agent, error)
}

// AuthHandler handles login and the authenticated agent's own profile.
type AuthHandler struct {
	agents    AgentDirectory
	recorder  ActivityRecorder
	secret    string
	expiresIn time.Duration
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(log *slog.Logger, agents AgentDirectory, recorder ActivityRecorder, secret, expiresIn string) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	ttl, err := time.ParseDuration(expiresIn)
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{
		agents:    agents,
		recorder:  recorder,
		secret:    secret,
		expiresIn: ttl,
		logger:    log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/api/auth/login", h.Login)
	e.GET("/api/auth/me", h.Me)
	e.GET("/api/profile", h.Me)
	e.PUT("/api/profile", h.UpdateProfile)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Agent     directory.Agent `json:"agent"`
}

// Login verifies credentials and issues a JWT.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	ctx := c.Request().Context()
	agent, err := h.agents.GetAgentByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return domainHTTPError(err)
	}
	if !agent.Active {
		return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("failed login", slog.String("username", req.Username))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, expiresAt, err := auth.GenerateToken(auth.Identity{
		AgentID:      agent.ID,
		Name:         agent.Name,
		Role:         string(agent.Role),
		DepartmentID: agent.DepartmentID,
	}, h.secret, h.expiresIn)
	if err != nil {
		return domainHTTPError(err)
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, agent.ID, activity.ActionLogin, "")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, Agent: agent})
}

// Me returns the calling agent's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	agent, err := h.agents.GetAgent(c.Request().Context(), identity.AgentID)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, agent)
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile lets an agent change their own display name and email.
// Role and department changes stay with the admin user endpoints.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == nil && req.Email == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	ctx := c.Request().Context()
	agent, err := h.agents.UpdateAgent(ctx, identity.AgentID, directory.UpdateAgentInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return domainHTTPError(err)
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, identity.AgentID, activity.ActionAgentUpdated, "profile")
	}
	return c.JSON(http.StatusOK, agent)
}
