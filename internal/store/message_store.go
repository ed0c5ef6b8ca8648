package store

import (
	"context"

	"realestate/internal/models"
)

type MessageStore struct {
	db DB
}

func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, ticket_id, deposit_id, from_user_id, from_type, to_user_id, message, read, created_at`

type MessageInput struct {
	ID         string
	TicketID   *string
	DepositID  *string
	FromUserID string
	FromType   string
	ToUserID   string
	Message    string
}

func (s *MessageStore) Create(ctx context.Context, tx Execer, input MessageInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, ticket_id, deposit_id, from_user_id, from_type, to_user_id, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, input.ID, input.TicketID, input.DepositID, input.FromUserID, input.FromType, input.ToUserID, input.Message)
	return err
}

func (s *MessageStore) GetByID(ctx context.Context, messageID string) (models.Message, error) {
	var row models.Message
	err := s.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	return row, err
}

// MarkRead only matches rows addressed to userID. Marking an already read
// message still matches, which keeps the call idempotent.
func (s *MessageStore) MarkRead(ctx context.Context, messageID, userID string) (int64, error) {
	return execAffected(ctx, s.db, `
		UPDATE messages
		SET read = TRUE
		WHERE id = $1 AND to_user_id = $2
	`, messageID, userID)
}

func (s *MessageStore) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Message, error) {
	rows := []models.Message{}
	query := `SELECT ` + messageColumns + ` FROM messages WHERE (to_user_id = $1 OR from_user_id = $1)`
	if unreadOnly {
		query += " AND to_user_id = $1 AND read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessageStore) ListByDeposit(ctx context.Context, depositID string) ([]models.Message, error) {
	rows := []models.Message{}
	err := s.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages WHERE deposit_id = $1 ORDER BY created_at`, depositID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessageStore) ListByTicket(ctx context.Context, ticketID string) ([]models.Message, error) {
	rows := []models.Message{}
	err := s.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages WHERE ticket_id = $1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessageStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM messages WHERE to_user_id = $1 AND read = FALSE`, userID)
	return count, err
}
