package message

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

// Service provides message persistence operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a message service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "message")),
	}
}

const messageColumns = `id::text, conversation_id::text, sender_type, sender_id::text, message_type, content, COALESCE(file_path, ''), COALESCE(file_name, ''), created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	var senderID pgtype.Text
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderType, &senderID, &m.MessageType,
		&m.Content, &m.FilePath, &m.FileName, &m.CreatedAt); err != nil {
		return Message{}, err
	}
	m.SenderID = dbpkg.TextToString(senderID)
	return m, nil
}

// Append inserts a message. A message must carry text content or a file.
func (s *Service) Append(ctx context.Context, input AppendInput) (Message, error) {
	if strings.TrimSpace(input.Content) == "" && input.FilePath == "" {
		return Message{}, ErrEmptyMessage
	}
	m, err := scanMessage(s.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_type, sender_id, message_type, content, file_path, file_name)
		VALUES ($1::uuid, $2, NULLIF($3, '')::uuid, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING `+messageColumns,
		input.ConversationID, input.SenderType, input.SenderID,
		input.MessageType, input.Content, input.FilePath, input.FileName))
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// ListByConversation returns a conversation's transcript oldest first.
func (s *Service) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = $1::uuid ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Get returns a single message by id.
func (s *Service) Get(ctx context.Context, id string) (Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// CountSince returns the number of messages created at or after the cutoff.
func (s *Service) CountSince(ctx context.Context, cutoff string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE created_at >= now() - $1::interval`, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
