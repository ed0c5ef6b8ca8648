package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"realestate/internal/db"
	"realestate/internal/models"
	"realestate/internal/money"
	"realestate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LedgerStore interface {
	TransactionStore
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	Reconcile(ctx context.Context, userID string) ([]models.BalanceCheck, error)
}

type BalanceReader interface {
	UserStore
	GetBalance(ctx context.Context, userID string) (int64, error)
}

type WalletService struct {
	txRunner db.TxRunner
	users    BalanceReader
	ledger   LedgerStore
	audit    AuditStore
	balances BalanceCache
	now      func() time.Time
}

func NewWalletService(txRunner db.TxRunner, users BalanceReader, ledger LedgerStore, audit AuditStore, balances BalanceCache) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		users:    users,
		ledger:   ledger,
		audit:    audit,
		balances: balances,
		now:      time.Now,
	}
}

// Balance serves from the cache when possible. Cache errors fall through to
// the database. The generation observed on the miss guards the write-back, so
// a commit landing between the read and Set leaves the cache empty.
func (s *WalletService) Balance(ctx context.Context, actor Actor) (int64, error) {
	cached, generation, ok, cacheErr := s.balances.Get(ctx, actor.UserID)
	if cacheErr != nil {
		log.Printf("balance cache get %s: %v", actor.UserID, cacheErr)
	}
	if ok {
		return cached, nil
	}
	balance, err := s.users.GetBalance(ctx, actor.UserID)
	if err != nil {
		return 0, notFound(err)
	}
	if cacheErr == nil {
		if err := s.balances.Set(ctx, actor.UserID, generation, balance); err != nil {
			log.Printf("balance cache set %s: %v", actor.UserID, err)
		}
	}
	return balance, nil
}

func (s *WalletService) Transactions(ctx context.Context, actor Actor, txType string, limit, offset int) ([]models.Transaction, error) {
	switch txType {
	case "", models.TransactionDeposit, models.TransactionFee, models.TransactionAdjustment:
	default:
		return nil, ErrInvalidTransactionType
	}
	return s.ledger.ListByUser(ctx, actor.UserID, txType, limit, offset)
}

// Adjust applies a signed admin correction. The balance may not go negative.
func (s *WalletService) Adjust(ctx context.Context, actor Actor, userID string, amount int64, reason string) (models.Transaction, error) {
	if !actor.IsAdmin() {
		return models.Transaction{}, ErrForbidden
	}
	if amount == 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	notes := optional(reason)
	if notes == nil {
		return models.Transaction{}, ErrReasonRequired
	}
	var adjustment models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return notFound(err)
		}
		balance := user.WalletBalance + amount
		if balance < 0 {
			return ErrInsufficientFunds
		}
		if (amount > 0) != (balance > user.WalletBalance) {
			return ErrInvalidAmount
		}
		adjustment = models.Transaction{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Type:        models.TransactionAdjustment,
			Status:      models.TransactionCompleted,
			Amount:      amount,
			Description: "Admin adjustment",
			AdminNotes:  notes,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.ledger.Create(ctx, tx, store.TransactionInput{
			ID:          adjustment.ID,
			UserID:      adjustment.UserID,
			Type:        adjustment.Type,
			Status:      adjustment.Status,
			Amount:      adjustment.Amount,
			Description: adjustment.Description,
			AdminNotes:  notes,
		}); err != nil {
			return err
		}
		if err := s.users.UpdateBalance(ctx, tx, user.ID, balance); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"amount":  money.FormatMinor(amount),
			"balance": money.FormatMinor(balance),
			"reason":  *notes,
		})
		return s.audit.Log(ctx, tx, actor.UserID, "adjust_wallet", "user", user.ID, string(data))
	})
	if err != nil {
		return models.Transaction{}, err
	}
	invalidateBalance(ctx, s.balances, userID)
	return adjustment, nil
}

func (s *WalletService) Reconcile(ctx context.Context, actor Actor) ([]models.BalanceCheck, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.ledger.Reconcile(ctx, "")
}

func (s *WalletService) SelfCheck(ctx context.Context, actor Actor) (models.BalanceCheck, error) {
	rows, err := s.ledger.Reconcile(ctx, actor.UserID)
	if err != nil {
		return models.BalanceCheck{}, err
	}
	if len(rows) == 0 {
		return models.BalanceCheck{}, ErrNotFound
	}
	return rows[0], nil
}
