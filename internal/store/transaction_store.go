package store

import (
	"context"
	"fmt"

	"realestate/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID          string
	UserID      string
	Type        string
	Status      string
	Amount      int64
	Description string
	ReferenceID *string
	AdminNotes  *string
}

const transactionColumns = `id, user_id, type, status, amount, description, reference_id, admin_notes, created_at`

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, status, amount, description, reference_id, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.UserID, input.Type, input.Status, input.Amount, input.Description, input.ReferenceID, input.AdminNotes)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	param := 2
	if txType != "" {
		query += " AND type = $2"
		args = append(args, txType)
		param = 3
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reconcile compares every stored wallet balance with the sum of its
// completed ledger rows. An empty userID checks all users.
func (s *TransactionStore) Reconcile(ctx context.Context, userID string) ([]models.BalanceCheck, error) {
	rows := []models.BalanceCheck{}
	query := `
		SELECT u.id AS user_id,
		       u.username,
		       u.wallet_balance AS stored_balance,
		       COALESCE(SUM(t.amount) FILTER (WHERE t.status = 'completed'), 0) AS ledger_sum,
		       (u.wallet_balance - COALESCE(SUM(t.amount) FILTER (WHERE t.status = 'completed'), 0)) AS difference
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
	`
	args := []any{}
	if userID != "" {
		query += " WHERE u.id = $1"
		args = append(args, userID)
	}
	query += " GROUP BY u.id, u.username, u.wallet_balance ORDER BY u.username"
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}
