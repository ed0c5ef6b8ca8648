package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"realestate/internal/approval"
	"realestate/internal/auth"
	"realestate/internal/media"
	"realestate/internal/models"
	"realestate/internal/store"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountBelowMinimum     = errors.New("amount below minimum")
	ErrAmountAboveMaximum     = errors.New("amount above maximum")
	ErrInvalidMethod          = errors.New("invalid payment method")
	ErrReasonRequired         = errors.New("reason required")
	ErrInvalidListing         = errors.New("invalid listing")
	ErrInvalidCorrelation     = errors.New("message may reference a ticket or a deposit, not both")
	ErrInvalidRecipient       = errors.New("invalid message recipient")
	ErrEmptyMessage           = errors.New("empty message")
	ErrMessageTooLong         = errors.New("message too long")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidAttachment      = errors.New("invalid attachment")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrNotAddressee      = errors.New("message not addressed to user")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrDepositNotPending = fmt.Errorf("deposit %w", approval.ErrNotPending)
	ErrListingNotPending = fmt.Errorf("listing %w", approval.ErrNotPending)
)

// Actor is the authenticated caller. Handlers build it from the request
// identity; services never read it from the context.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == auth.RoleAdmin
}

func (a Actor) fromType() string {
	if a.IsAdmin() {
		return auth.RoleAdmin
	}
	return auth.RoleMember
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

type MessageWriter interface {
	Create(ctx context.Context, tx store.Execer, input store.MessageInput) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

// BalanceCache matches cache.BalanceCache: Set is a no-op once the
// generation returned by Get has been bumped by Invalidate.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (balance, generation int64, ok bool, err error)
	Set(ctx context.Context, userID string, generation, balance int64) error
	Invalidate(ctx context.Context, userID string) error
}

type MediaStore interface {
	Save(ctx context.Context, file media.File) (string, error)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// pendingConflict maps an FSM rejection onto the workflow's own sentinel so
// callers can match either.
func pendingConflict(err, sentinel error) error {
	if errors.Is(err, approval.ErrNotPending) {
		return sentinel
	}
	return err
}

func requireActive(user models.User) error {
	if user.Status != models.UserStatusActive {
		return ErrAccountSuspended
	}
	return nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func invalidateBalance(ctx context.Context, balances BalanceCache, userID string) {
	if err := balances.Invalidate(ctx, userID); err != nil {
		log.Printf("balance cache invalidate %s: %v", userID, err)
	}
}

// storeAttachment moves an inline data URL into the media store. Anything
// else is assumed to be a reference returned by an earlier upload.
func storeAttachment(ctx context.Context, files MediaStore, ref, folder string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !media.IsDataURL(ref) {
		return ref, nil
	}
	file, err := media.DecodeDataURL(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAttachment, err)
	}
	file.Folder = folder
	return files.Save(ctx, file)
}
