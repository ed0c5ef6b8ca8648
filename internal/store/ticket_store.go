package store

import (
	"context"

	"realestate/internal/models"
)

type TicketStore struct {
	db DB
}

func NewTicketStore(db DB) *TicketStore {
	return &TicketStore{db: db}
}

const ticketColumns = `id, user_id, name, email, phone, subject, message, status, priority, admin_notes, assigned_to, created_at, updated_at`

type TicketInput struct {
	ID      string
	UserID  *string
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// TicketUpdate carries the admin-editable fields; nil leaves a field unchanged.
type TicketUpdate struct {
	Status     *string
	Priority   *string
	AdminNotes *string
	AssignedTo *string
}

func (s *TicketStore) Create(ctx context.Context, tx Execer, input TicketInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (id, user_id, name, email, phone, subject, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, input.ID, input.UserID, input.Name, input.Email, input.Phone, input.Subject, input.Message)
	return err
}

func (s *TicketStore) GetByID(ctx context.Context, ticketID string) (models.Ticket, error) {
	var row models.Ticket
	err := s.db.GetContext(ctx, &row, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID)
	return row, err
}

func (s *TicketStore) Update(ctx context.Context, tx Execer, ticketID string, update TicketUpdate) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE tickets
		SET status = COALESCE($1, status),
		    priority = COALESCE($2, priority),
		    admin_notes = COALESCE($3, admin_notes),
		    assigned_to = COALESCE($4, assigned_to),
		    updated_at = NOW()
		WHERE id = $5
	`, update.Status, update.Priority, update.AdminNotes, update.AssignedTo, ticketID)
}

func (s *TicketStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Ticket, error) {
	rows := []models.Ticket{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TicketStore) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Ticket, error) {
	rows := []models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
