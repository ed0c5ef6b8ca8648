package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"realestate/internal/approval"
	"realestate/internal/db"
	"realestate/internal/models"
	"realestate/internal/money"
	"realestate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	defaultDepositMethod = "bank_transfer"
	maxMethodLength      = 50
)

type DepositStore interface {
	Create(ctx context.Context, tx store.Execer, input store.DepositInput) error
	GetByID(ctx context.Context, depositID string) (models.DepositRequest, error)
	GetForUpdate(ctx context.Context, tx store.Getter, depositID string) (models.DepositRequest, error)
	Decide(ctx context.Context, tx store.Execer, decision store.DepositDecision) (int64, error)
	ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]models.DepositRequest, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error)
}

type DepositLimits struct {
	Min int64
	Max int64
}

type DepositService struct {
	txRunner     db.TxRunner
	users        UserStore
	deposits     DepositStore
	transactions TransactionStore
	messages     MessageWriter
	audit        AuditStore
	balances     BalanceCache
	files        MediaStore
	limits       DepositLimits
	now          func() time.Time
}

func NewDepositService(txRunner db.TxRunner, users UserStore, deposits DepositStore, transactions TransactionStore, messages MessageWriter, audit AuditStore, balances BalanceCache, files MediaStore, limits DepositLimits) *DepositService {
	return &DepositService{
		txRunner:     txRunner,
		users:        users,
		deposits:     deposits,
		transactions: transactions,
		messages:     messages,
		audit:        audit,
		balances:     balances,
		files:        files,
		limits:       limits,
		now:          time.Now,
	}
}

type DepositSubmission struct {
	AmountMinor  int64
	Method       string
	TransferBill string
	Description  string
}

func (s *DepositService) validate(req *DepositSubmission) error {
	if req.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if req.AmountMinor < s.limits.Min {
		return ErrAmountBelowMinimum
	}
	if s.limits.Max > 0 && req.AmountMinor > s.limits.Max {
		return ErrAmountAboveMaximum
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		req.Method = defaultDepositMethod
	}
	if len(req.Method) > maxMethodLength || strings.ContainsAny(req.Method, "\r\n\t") {
		return ErrInvalidMethod
	}
	return nil
}

// Submit records a pending request. Balance and ledger are untouched until an
// admin approves it.
func (s *DepositService) Submit(ctx context.Context, actor Actor, req DepositSubmission) (models.DepositRequest, error) {
	if err := s.validate(&req); err != nil {
		return models.DepositRequest{}, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return models.DepositRequest{}, ErrForbidden
		}
		return models.DepositRequest{}, err
	}
	if err := requireActive(user); err != nil {
		return models.DepositRequest{}, err
	}
	bill, err := storeAttachment(ctx, s.files, req.TransferBill, "deposits")
	if err != nil {
		return models.DepositRequest{}, err
	}

	deposit := models.DepositRequest{
		ID:           uuid.NewString(),
		UserID:       actor.UserID,
		Amount:       req.AmountMinor,
		Method:       req.Method,
		TransferBill: bill,
		Description:  strings.TrimSpace(req.Description),
		Status:       string(approval.Pending),
		CreatedAt:    s.now().UTC(),
	}
	deposit.UpdatedAt = deposit.CreatedAt
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.deposits.Create(ctx, tx, store.DepositInput{
			ID:           deposit.ID,
			UserID:       deposit.UserID,
			Amount:       deposit.Amount,
			Method:       deposit.Method,
			TransferBill: deposit.TransferBill,
			Description:  deposit.Description,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"amount": money.FormatMinor(deposit.Amount),
			"method": deposit.Method,
		})
		return s.audit.Log(ctx, tx, actor.UserID, "submit_deposit", "deposit", deposit.ID, string(data))
	})
	if err != nil {
		return models.DepositRequest{}, err
	}
	return deposit, nil
}

// Approve credits the owner's wallet and writes the matching ledger row in
// the same transaction. Of two concurrent approvals only one commits; the
// other sees ErrDepositNotPending.
func (s *DepositService) Approve(ctx context.Context, actor Actor, depositID, adminNotes string) (models.Transaction, error) {
	if !actor.IsAdmin() {
		return models.Transaction{}, ErrForbidden
	}
	var credited models.Transaction
	var ownerID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.deposits.GetForUpdate(ctx, tx, depositID)
		if err != nil {
			return notFound(err)
		}
		if err := approval.Transition(approval.Status(deposit.Status), approval.Approved); err != nil {
			return pendingConflict(err, ErrDepositNotPending)
		}
		ownerID = deposit.UserID
		notes := optional(adminNotes)

		credited = models.Transaction{
			ID:          uuid.NewString(),
			UserID:      deposit.UserID,
			Type:        models.TransactionDeposit,
			Status:      models.TransactionCompleted,
			Amount:      deposit.Amount,
			Description: "Deposit approved",
			ReferenceID: &deposit.ID,
			AdminNotes:  notes,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          credited.ID,
			UserID:      credited.UserID,
			Type:        credited.Type,
			Status:      credited.Status,
			Amount:      credited.Amount,
			Description: credited.Description,
			ReferenceID: credited.ReferenceID,
			AdminNotes:  notes,
		}); err != nil {
			return err
		}
		changed, err := s.deposits.Decide(ctx, tx, store.DepositDecision{
			ID:            deposit.ID,
			Status:        string(approval.Approved),
			AdminNotes:    notes,
			ReviewedBy:    actor.UserID,
			TransactionID: &credited.ID,
		})
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrDepositNotPending
		}

		owner, err := s.users.GetForUpdate(ctx, tx, deposit.UserID)
		if err != nil {
			return notFound(err)
		}
		balance := owner.WalletBalance + deposit.Amount
		if balance < owner.WalletBalance {
			return ErrInvalidAmount
		}
		if err := s.users.UpdateBalance(ctx, tx, owner.ID, balance); err != nil {
			return err
		}

		text := fmt.Sprintf("Your deposit of %s has been approved.", money.FormatMinor(deposit.Amount))
		if notes != nil {
			text += " " + *notes
		}
		if err := s.messages.Create(ctx, tx, store.MessageInput{
			ID:         uuid.NewString(),
			DepositID:  &deposit.ID,
			FromUserID: actor.UserID,
			FromType:   actor.fromType(),
			ToUserID:   deposit.UserID,
			Message:    text,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"amount":         money.FormatMinor(deposit.Amount),
			"transaction_id": credited.ID,
			"balance":        money.FormatMinor(balance),
		})
		return s.audit.Log(ctx, tx, actor.UserID, "approve_deposit", "deposit", deposit.ID, string(data))
	})
	if err != nil {
		return models.Transaction{}, err
	}
	invalidateBalance(ctx, s.balances, ownerID)
	return credited, nil
}

// Reject closes the request without touching the ledger.
func (s *DepositService) Reject(ctx context.Context, actor Actor, depositID, reason string) (models.DepositRequest, error) {
	if !actor.IsAdmin() {
		return models.DepositRequest{}, ErrForbidden
	}
	notes := optional(reason)
	if notes == nil {
		return models.DepositRequest{}, ErrReasonRequired
	}
	var rejected models.DepositRequest
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.deposits.GetForUpdate(ctx, tx, depositID)
		if err != nil {
			return notFound(err)
		}
		if err := approval.Transition(approval.Status(deposit.Status), approval.Rejected); err != nil {
			return pendingConflict(err, ErrDepositNotPending)
		}
		changed, err := s.deposits.Decide(ctx, tx, store.DepositDecision{
			ID:         deposit.ID,
			Status:     string(approval.Rejected),
			AdminNotes: notes,
			ReviewedBy: actor.UserID,
		})
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrDepositNotPending
		}
		if err := s.messages.Create(ctx, tx, store.MessageInput{
			ID:         uuid.NewString(),
			DepositID:  &deposit.ID,
			FromUserID: actor.UserID,
			FromType:   actor.fromType(),
			ToUserID:   deposit.UserID,
			Message:    "Your deposit request was rejected: " + *notes,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"reason": *notes})
		if err := s.audit.Log(ctx, tx, actor.UserID, "reject_deposit", "deposit", deposit.ID, string(data)); err != nil {
			return err
		}
		reviewedAt := s.now().UTC()
		rejected = deposit
		rejected.Status = string(approval.Rejected)
		rejected.AdminNotes = notes
		rejected.ReviewedBy = &actor.UserID
		rejected.ReviewedAt = &reviewedAt
		return nil
	})
	if err != nil {
		return models.DepositRequest{}, err
	}
	return rejected, nil
}

func (s *DepositService) Get(ctx context.Context, actor Actor, depositID string) (models.DepositRequest, error) {
	deposit, err := s.deposits.GetByID(ctx, depositID)
	if err != nil {
		return models.DepositRequest{}, notFound(err)
	}
	if !actor.IsAdmin() && deposit.UserID != actor.UserID {
		return models.DepositRequest{}, ErrForbidden
	}
	return deposit, nil
}

func (s *DepositService) ListMine(ctx context.Context, actor Actor, status string, limit, offset int) ([]models.DepositRequest, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	return s.deposits.ListByUser(ctx, actor.UserID, status, limit, offset)
}

func (s *DepositService) ListAll(ctx context.Context, actor Actor, status string, limit, offset int) ([]models.DepositRequest, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	return s.deposits.ListAll(ctx, status, limit, offset)
}

func checkStatusFilter(status string) error {
	if status == "" {
		return nil
	}
	if _, err := approval.Parse(status); err != nil {
		return ErrInvalidStatus
	}
	return nil
}
