package store

import (
	"context"

	"realestate/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, phone, role, status, wallet_balance, created_at, last_login`

type NewUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         string
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user NewUser) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, full_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.FullName, user.Phone, user.Role)
	return err
}

// GetByLogin resolves either a username or an email address.
func (s *UserStore) GetByLogin(ctx context.Context, login string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, login)
	return row, err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return row, err
}

func (s *UserStore) GetAccess(ctx context.Context, userID string) (string, string, error) {
	var row struct {
		Role   string `db:"role"`
		Status string `db:"status"`
	}
	if err := s.db.GetContext(ctx, &row, `SELECT role, status FROM users WHERE id = $1`, userID); err != nil {
		return "", "", err
	}
	return row.Role, row.Status, nil
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	return row, err
}

func (s *UserStore) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance, `SELECT wallet_balance FROM users WHERE id = $1`, userID)
	return balance, err
}

// UpdateBalance must only be called on a row locked with GetForUpdate in the
// same transaction, next to the ledger insert that explains the change.
func (s *UserStore) UpdateBalance(ctx context.Context, tx Execer, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET wallet_balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, userID)
	return err
}

func (s *UserStore) UpdateStatus(ctx context.Context, tx Execer, userID, status string) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE users
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, userID)
}

func (s *UserStore) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, userID)
	return err
}

// HasAnyAdmin must run inside the registering transaction. Under
// SERIALIZABLE isolation two first registrations that both read zero admins
// conflict, and the retried one then sees the committed admin.
func (s *UserStore) HasAnyAdmin(ctx context.Context, tx Getter) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(1) FROM users WHERE role = 'admin'`)
	return count > 0, err
}

// AnyActiveAdmin returns the longest-standing active admin, or sql.ErrNoRows.
func (s *UserStore) AnyActiveAdmin(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, `
		SELECT id FROM users
		WHERE role = 'admin' AND status = 'active'
		ORDER BY created_at
		LIMIT 1
	`)
	return id, err
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows := []models.User{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
