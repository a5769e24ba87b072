package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/atendohq/atendo/internal/db"
)

// Service provides audit trail persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates an activity service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "activity")),
	}
}

// Record appends one audit entry. Failures are logged and swallowed: the
// audit trail never blocks the action it describes.
func (s *Service) Record(ctx context.Context, agentID, action, detail string) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity_log (agent_id, action, detail)
		VALUES (NULLIF($1, '')::uuid, $2, NULLIF($3, ''))`,
		agentID, action, detail)
	if err != nil {
		s.logger.Warn("record activity",
			slog.String("action", action),
			slog.String("error", err.Error()))
	}
}

// List returns audit entries newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, agent_id::text, action, COALESCE(detail, ''), created_at
		FROM activity_log
		WHERE ($1 = '' OR agent_id = NULLIF($1, '')::uuid)
		  AND ($2 = '' OR action = $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		filter.AgentID, filter.Action, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var agentID pgtype.Text
		if err := rows.Scan(&e.ID, &agentID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.AgentID = dbpkg.TextToString(agentID)
		items = append(items, e)
	}
	return items, rows.Err()
}

// PruneOlderThan deletes entries older than the given number of days and
// returns how many rows went away.
func (s *Service) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM activity_log WHERE created_at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return tag.RowsAffected(), nil
}
