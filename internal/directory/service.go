// Package directory persists departments and agents, the routing targets
// for conversations.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/atendohq/atendo/internal/db"
)

// Service provides department and agent persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a directory service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "directory")),
	}
}

const departmentColumns = `id::text, name, description, is_active, is_default, created_at, updated_at`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	var description pgtype.Text
	if err := row.Scan(&d.ID, &d.Name, &description, &d.Active, &d.IsDefault, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Department{}, err
	}
	d.Description = dbpkg.TextToString(description)
	return d, nil
}

// DefaultDepartment returns the deployment's fallback routing department.
func (s *Service) DefaultDepartment(ctx context.Context) (Department, error) {
	d, err := scanDepartment(s.pool.QueryRow(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE is_default`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrNoDefaultDepartment
		}
		return Department{}, fmt.Errorf("default department: %w", err)
	}
	return d, nil
}

// GetDepartment returns a department by id.
func (s *Service) GetDepartment(ctx context.Context, id string) (Department, error) {
	d, err := scanDepartment(s.pool.QueryRow(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrDepartmentNotFound
		}
		return Department{}, fmt.Errorf("get department: %w", err)
	}
	return d, nil
}

// ListDepartments returns all departments ordered by name.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+departmentColumns+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	items := make([]Department, 0)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// CreateDepartment inserts a new department.
func (s *Service) CreateDepartment(ctx context.Context, input CreateDepartmentInput) (Department, error) {
	d, err := scanDepartment(s.pool.QueryRow(ctx, `
		INSERT INTO departments (name, description)
		VALUES ($1, NULLIF($2, ''))
		RETURNING `+departmentColumns,
		strings.TrimSpace(input.Name), strings.TrimSpace(input.Description)))
	if err != nil {
		return Department{}, fmt.Errorf("create department: %w", err)
	}
	return d, nil
}

// SetDepartmentActive toggles a department's active flag.
func (s *Service) SetDepartmentActive(ctx context.Context, id string, active bool) (Department, error) {
	d, err := scanDepartment(s.pool.QueryRow(ctx, `
		UPDATE departments
		SET is_active = $2, updated_at = now()
		WHERE id = $1::uuid
		RETURNING `+departmentColumns, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrDepartmentNotFound
		}
		return Department{}, fmt.Errorf("update department: %w", err)
	}
	return d, nil
}

const agentColumns = `id::text, username, name, email, password_hash, role, department_id::text, is_active, created_at, updated_at`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	var email, departmentID pgtype.Text
	if err := row.Scan(&a.ID, &a.Username, &a.Name, &email, &a.PasswordHash, &a.Role, &departmentID, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Agent{}, err
	}
	a.Email = dbpkg.TextToString(email)
	a.DepartmentID = dbpkg.TextToString(departmentID)
	return a, nil
}

// GetAgent returns an agent by id.
func (s *Service) GetAgent(ctx context.Context, id string) (Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// GetAgentByUsername returns an agent with its password hash for login checks.
func (s *Service) GetAgentByUsername(ctx context.Context, username string) (Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE username = $1`, strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("get agent by username: %w", err)
	}
	return a, nil
}

// ListAgents returns all agents ordered by name.
func (s *Service) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	items := make([]Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// CreateAgent inserts a new agent with the given password hash.
func (s *Service) CreateAgent(ctx context.Context, input CreateAgentInput, passwordHash string) (Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx, `
		INSERT INTO agents (username, name, email, password_hash, role, department_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, '')::uuid)
		RETURNING `+agentColumns,
		strings.TrimSpace(input.Username), strings.TrimSpace(input.Name),
		strings.TrimSpace(input.Email), passwordHash, string(input.Role), input.DepartmentID))
	if err != nil {
		return Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// UpdateAgent applies a partial update to an agent.
func (s *Service) UpdateAgent(ctx context.Context, id string, input UpdateAgentInput) (Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx, `
		UPDATE agents SET
			name          = COALESCE($2, name),
			email         = COALESCE(NULLIF($3, ''), email),
			role          = COALESCE($4, role),
			department_id = COALESCE(NULLIF($5, '')::uuid, department_id),
			is_active     = COALESCE($6, is_active),
			updated_at    = now()
		WHERE id = $1::uuid
		RETURNING `+agentColumns,
		id, input.Name, derefOr(input.Email, ""), (*string)(input.Role),
		derefOr(input.DepartmentID, ""), input.Active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrAgentNotFound
		}
		return Agent{}, fmt.Errorf("update agent: %w", err)
	}
	return a, nil
}

// CountAgents returns the total number of agent rows.
func (s *Service) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return count, nil
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
