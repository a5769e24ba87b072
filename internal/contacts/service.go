// Package contacts persists the address book of external parties.
package contacts

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

// Service provides contact persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a contact service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "contacts")),
	}
}

// FindOrCreateByPhone returns the contact with the given phone, creating a
// placeholder record named after the phone when none exists.
func (s *Service) FindOrCreateByPhone(ctx context.Context, phone, displayName string) (Contact, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Contact{}, fmt.Errorf("phone is required")
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = phone
	}
	var c Contact
	var email, createdBy pgtype.Text
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (phone, name)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id::text, phone, name, email, created_by::text, created_at
	`, phone, name).Scan(&c.ID, &c.Phone, &c.Name, &email, &createdBy, &c.CreatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("find or create contact: %w", err)
	}
	c.Email = dbpkg.TextToString(email)
	c.CreatedBy = dbpkg.TextToString(createdBy)
	return c, nil
}

// Create inserts a new contact from the address book UI.
func (s *Service) Create(ctx context.Context, input CreateInput) (Contact, error) {
	var c Contact
	var email, createdBy pgtype.Text
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (phone, name, email, created_by)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, '')::uuid)
		RETURNING id::text, phone, name, email, created_by::text, created_at
	`, strings.TrimSpace(input.Phone), strings.TrimSpace(input.Name), strings.TrimSpace(input.Email), input.CreatedBy).
		Scan(&c.ID, &c.Phone, &c.Name, &email, &createdBy, &c.CreatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	c.Email = dbpkg.TextToString(email)
	c.CreatedBy = dbpkg.TextToString(createdBy)
	return c, nil
}

// Get returns a contact by id.
func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	var c Contact
	var email, createdBy pgtype.Text
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, phone, name, email, created_by::text, created_at
		FROM contacts
		WHERE id = $1::uuid
	`, id).Scan(&c.ID, &c.Phone, &c.Name, &email, &createdBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	c.Email = dbpkg.TextToString(email)
	c.CreatedBy = dbpkg.TextToString(createdBy)
	return c, nil
}

// List returns all contacts ordered by name.
func (s *Service) List(ctx context.Context) ([]Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, phone, name, email, created_by::text, created_at
		FROM contacts
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		var email, createdBy pgtype.Text
		if err := rows.Scan(&c.ID, &c.Phone, &c.Name, &email, &createdBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Email = dbpkg.TextToString(email)
		c.CreatedBy = dbpkg.TextToString(createdBy)
		items = append(items, c)
	}
	return items, rows.Err()
}
