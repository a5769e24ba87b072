package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service provides settings persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a settings service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "settings")),
	}
}

// All returns every known setting, falling back to defaults for keys never
// written.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string, len(defaults))
	for key, value := range defaults {
		values[key] = value
	}

	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

// Get returns one setting's effective value.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	fallback, known := defaults[key]
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// Upsert writes the given preferences. Unknown keys fail the whole request
// before anything is written.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (map[string]string, error) {
	for key := range req {
		if _, known := defaults[key]; !known {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}
	for key, value := range req {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return s.All(ctx)
}
