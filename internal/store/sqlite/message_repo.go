package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rivift-connect/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `seq, id, conversation_key, from_identity, to_identity, body, created_at, is_read, is_deleted`

func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_key, from_identity, to_identity, body, created_at, is_read, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
	`,
		m.ID,
		m.ConversationKey,
		m.From,
		m.To,
		m.Body,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.Seq = seq
	return nil
}

func (r *MessageRepo) Get(ctx context.Context, conversationKey, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_key = ? AND id = ?`
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, query, conversationKey, id).Scan(
		&m.Seq,
		&m.ID,
		&m.ConversationKey,
		&m.From,
		&m.To,
		&m.Body,
		&m.CreatedAt,
		&m.Read,
		&m.Deleted,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return m, nil
}

// MarkRead is direction-sensitive: only messages addressed to reader
// flip, never the ones reader sent.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationKey, reader string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET is_read = 1
		WHERE conversation_key = ? AND to_identity = ? AND is_read = 0
	`, conversationKey, reader)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SoftDelete tombstones in place; the sender guard and the is_deleted
// guard live in the statement so the update is a single compare-and-set.
func (r *MessageRepo) SoftDelete(ctx context.Context, conversationKey, id, sender string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET body = ?, is_deleted = 1
		WHERE conversation_key = ? AND id = ? AND from_identity = ? AND is_deleted = 0
	`, domain.Tombstone, conversationKey, id, sender)
	if err != nil {
		return false, fmt.Errorf("soft delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *MessageRepo) DeleteConversation(ctx context.Context, conversationKey string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM messages WHERE conversation_key = ?
	`, conversationKey); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListNewestFirst(ctx context.Context, conversationKey string, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_key = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, conversationKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.Seq,
			&m.ID,
			&m.ConversationKey,
			&m.From,
			&m.To,
			&m.Body,
			&m.CreatedAt,
			&m.Read,
			&m.Deleted,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) UnreadCount(ctx context.Context, conversationKey, identity string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_key = ? AND to_identity = ? AND is_read = 0
	`, conversationKey, identity).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
