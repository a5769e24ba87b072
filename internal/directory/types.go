package directory

import (
	"errors"
	"time"
)

var (
	// ErrDepartmentNotFound indicates the requested department does not exist.
	ErrDepartmentNotFound = errors.New("department not found")
	// ErrAgentNotFound indicates the requested agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNoDefaultDepartment indicates the deployment has no default department row.
	ErrNoDefaultDepartment = errors.New("no default department configured")
)

// Role enumerates agent permission levels.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

// Department is a routing bucket grouping agents.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"is_active"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Agent is a human operator.
type Agent struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	DepartmentID string    `json:"department_id,omitempty"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// PasswordHash is only populated by credential lookups and never serialized.
	PasswordHash string `json:"-"`
}

// CreateDepartmentInput carries the fields for a new department.
type CreateDepartmentInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CreateAgentInput carries the fields for a new agent.
type CreateAgentInput struct {
	Username     string `json:"username" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         Role   `json:"role" validate:"required,oneof=admin manager agent"`
	DepartmentID string `json:"department_id"`
}

// UpdateAgentInput carries a partial agent update.
type UpdateAgentInput struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Role         *Role   `json:"role" validate:"omitempty,oneof=admin manager agent"`
	DepartmentID *string `json:"department_id"`
	Active       *bool   `json:"is_active"`
}
