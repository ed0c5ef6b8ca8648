package store

import (
	"context"

	"realestate/internal/models"
)

type DepositStore struct {
	db DB
}

func NewDepositStore(db DB) *DepositStore {
	return &DepositStore{db: db}
}

const depositColumns = `id, user_id, amount, method, transfer_bill, description, status, admin_notes, reviewed_by, reviewed_at, transaction_id, created_at, updated_at`

type DepositInput struct {
	ID           string
	UserID       string
	Amount       int64
	Method       string
	TransferBill string
	Description  string
}

// DepositDecision moves a pending request to a terminal status.
// TransactionID is set only on approval.
type DepositDecision struct {
	ID            string
	Status        string
	AdminNotes    *string
	ReviewedBy    string
	TransactionID *string
}

func (s *DepositStore) Create(ctx context.Context, tx Execer, input DepositInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO deposit_requests (id, user_id, amount, method, transfer_bill, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, input.ID, input.UserID, input.Amount, input.Method, input.TransferBill, input.Description)
	return err
}

func (s *DepositStore) GetByID(ctx context.Context, depositID string) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := s.db.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, depositID)
	return row, err
}

func (s *DepositStore) GetForUpdate(ctx context.Context, tx Getter, depositID string) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := tx.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1 FOR UPDATE`, depositID)
	return row, err
}

// Decide applies the decision only while the row is still pending and
// reports how many rows changed; zero means another reviewer got there first.
func (s *DepositStore) Decide(ctx context.Context, tx Execer, decision DepositDecision) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE deposit_requests
		SET status = $1, admin_notes = $2, reviewed_by = $3, reviewed_at = NOW(), transaction_id = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'pending'
	`, decision.Status, decision.AdminNotes, decision.ReviewedBy, decision.TransactionID, decision.ID)
}

func (s *DepositStore) ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]models.DepositRequest, error) {
	rows := []models.DepositRequest{}
	query := `SELECT ` + depositColumns + ` FROM deposit_requests WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *DepositStore) ListAll(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error) {
	rows := []models.DepositRequest{}
	query := `SELECT ` + depositColumns + ` FROM deposit_requests`
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
