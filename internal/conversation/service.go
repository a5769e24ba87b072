package conversation

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

// Service provides conversation persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a conversation service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

const conversationColumns = `id::text, contact_id::text, department_id::text, agent_id::text, status, version, created_at, updated_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	var agentID pgtype.Text
	if err := row.Scan(&c.ID, &c.ContactID, &c.DepartmentID, &agentID, &c.Status, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Conversation{}, err
	}
	c.AgentID = dbpkg.TextToString(agentID)
	return c, nil
}

// Get returns a conversation by id.
func (s *Service) Get(ctx context.Context, id string) (Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrConversationNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// FindActiveByContact returns the contact's non-closed conversation, if any.
func (s *Service) FindActiveByContact(ctx context.Context, contactID string) (Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE contact_id = $1::uuid AND status <> 'closed'`, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrConversationNotFound
		}
		return Conversation{}, fmt.Errorf("find active conversation: %w", err)
	}
	return c, nil
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	DepartmentID string
	Status       string
}

// List returns conversations newest-activity first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE ($1 = '' OR department_id = NULLIF($1, '')::uuid)
		  AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC`,
		filter.DepartmentID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Create opens a new pending conversation for a contact in a department.
// The database enforces at most one non-closed conversation per contact.
func (s *Service) Create(ctx context.Context, contactID, departmentID string) (Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (contact_id, department_id, status)
		VALUES ($1::uuid, $2::uuid, 'pending')
		RETURNING `+conversationColumns, contactID, departmentID))
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Touch bumps updated_at so the conversation sorts to the top of lists.
func (s *Service) Touch(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1::uuid`, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// UpdateAssignment applies a new routing target if the caller's version is
// still current. The version column advances on success.
func (s *Service) UpdateAssignment(ctx context.Context, id string, expectedVersion int64, a Assignment) (Conversation, error) {
	c, err := s.updateAssignment(ctx, s.pool, id, expectedVersion, a)
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Service) updateAssignment(ctx context.Context, q queryRower, id string, expectedVersion int64, a Assignment) (Conversation, error) {
	c, err := scanConversation(q.QueryRow(ctx, `
		UPDATE conversations SET
			department_id = $3::uuid,
			agent_id      = NULLIF($4, '')::uuid,
			status        = $5,
			version       = version + 1,
			updated_at    = now()
		WHERE id = $1::uuid AND version = $2 AND status <> 'closed'
		RETURNING `+conversationColumns,
		id, expectedVersion, a.DepartmentID, a.AgentID, a.Status))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, fmt.Errorf("update assignment: %w", err)
	}
	// Zero rows: decide between missing, closed, and a stale version.
	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return Conversation{}, getErr
	}
	if current.Status == StatusClosed {
		return Conversation{}, ErrConversationClosed
	}
	return Conversation{}, ErrVersionConflict
}

// Close marks a conversation closed. Closing an already closed conversation
// returns ErrConversationClosed.
func (s *Service) Close(ctx context.Context, id string) (Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET
			status     = 'closed',
			version    = version + 1,
			updated_at = now()
		WHERE id = $1::uuid AND status <> 'closed'
		RETURNING `+conversationColumns, id))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, fmt.Errorf("close conversation: %w", err)
	}
	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return Conversation{}, getErr
	}
	if current.Status == StatusClosed {
		return Conversation{}, ErrConversationClosed
	}
	return Conversation{}, fmt.Errorf("close conversation %s: update matched no rows", id)
}

// TransferInput describes a routing change plus its audit trail.
type TransferInput struct {
	ConversationID    string
	ExpectedVersion   int64
	Assignment        Assignment
	FromDepartmentID  string
	FromAgentID       string
	TransferredBy     string
	Reason            string
	SystemMessageBody string
}

// TransferResult is the state written by a successful Transfer.
type TransferResult struct {
	Conversation    Conversation
	Record          TransferRecord
	SystemMessageID string
}

// Transfer atomically reassigns a conversation, appends the transfer record,
// and inserts the system message describing the move. Either all three rows
// are written or none are.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TransferResult{}, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	conv, err := s.updateAssignment(ctx, tx, input.ConversationID, input.ExpectedVersion, input.Assignment)
	if err != nil {
		return TransferResult{}, err
	}

	var record TransferRecord
	var fromAgent, toAgent pgtype.Text
	err = tx.QueryRow(ctx, `
		INSERT INTO transfers (conversation_id, from_department_id, to_department_id, from_agent_id, to_agent_id, transferred_by, reason)
		VALUES ($1::uuid, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6::uuid, NULLIF($7, ''))
		RETURNING id::text, conversation_id::text, COALESCE(from_department_id::text, ''), COALESCE(to_department_id::text, ''), from_agent_id::text, to_agent_id::text, transferred_by::text, COALESCE(reason, ''), created_at`,
		input.ConversationID, input.FromDepartmentID, input.Assignment.DepartmentID,
		input.FromAgentID, input.Assignment.AgentID, input.TransferredBy, strings.TrimSpace(input.Reason)).
		Scan(&record.ID, &record.ConversationID, &record.FromDepartmentID, &record.ToDepartmentID,
			&fromAgent, &toAgent, &record.TransferredBy, &record.Reason, &record.CreatedAt)
	if err != nil {
		return TransferResult{}, fmt.Errorf("insert transfer record: %w", err)
	}
	record.FromAgentID = dbpkg.TextToString(fromAgent)
	record.ToAgentID = dbpkg.TextToString(toAgent)

	var systemMessageID string
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_type, message_type, content)
		VALUES ($1::uuid, 'system', 'text', $2)
		RETURNING id::text`,
		input.ConversationID, input.SystemMessageBody).Scan(&systemMessageID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("insert transfer message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, fmt.Errorf("commit transfer: %w", err)
	}

	s.logger.Info("conversation transferred",
		slog.String("conversation_id", conv.ID),
		slog.String("to_department_id", input.Assignment.DepartmentID),
		slog.String("to_agent_id", input.Assignment.AgentID))

	return TransferResult{Conversation: conv, Record: record, SystemMessageID: systemMessageID}, nil
}

// ListTransfers returns a conversation's transfer history oldest first.
func (s *Service) ListTransfers(ctx context.Context, conversationID string) ([]TransferRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, COALESCE(from_department_id::text, ''), COALESCE(to_department_id::text, ''),
		       from_agent_id::text, to_agent_id::text, transferred_by::text, COALESCE(reason, ''), created_at
		FROM transfers WHERE conversation_id = $1::uuid ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	items := make([]TransferRecord, 0)
	for rows.Next() {
		var r TransferRecord
		var fromAgent, toAgent pgtype.Text
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.FromDepartmentID, &r.ToDepartmentID,
			&fromAgent, &toAgent, &r.TransferredBy, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.FromAgentID = dbpkg.TextToString(fromAgent)
		r.ToAgentID = dbpkg.TextToString(toAgent)
		items = append(items, r)
	}
	return items, rows.Err()
}

// CountByStatus returns conversation counts keyed by status.
func (s *Service) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, count(*) FROM conversations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
