package store

import (
	"context"

	"realestate/internal/models"
)

type SettingsStore struct {
	db DB
}

func NewSettingsStore(db DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) GetBankInfo(ctx context.Context) (models.BankInfo, error) {
	var row models.BankInfo
	err := s.db.GetContext(ctx, &row, `
		SELECT bank_name, account_number, account_holder, branch, qr_code, updated_at
		FROM bank_info
		WHERE id = 1
	`)
	return row, err
}

func (s *SettingsStore) UpdateBankInfo(ctx context.Context, tx Execer, info models.BankInfo) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bank_info (id, bank_name, account_number, account_holder, branch, qr_code, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET bank_name = EXCLUDED.bank_name,
		    account_number = EXCLUDED.account_number,
		    account_holder = EXCLUDED.account_holder,
		    branch = EXCLUDED.branch,
		    qr_code = EXCLUDED.qr_code,
		    updated_at = NOW()
	`, info.BankName, info.AccountNumber, info.AccountHolder, info.Branch, info.QRCode)
	return err
}
