package services

import (
	"context"
	"time"

	"realestate/internal/models"
	"realestate/internal/store"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubUserStore struct {
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	updateBalanceFn func(ctx context.Context, tx store.Execer, userID string, balance int64) error
	getBalanceFn    func(ctx context.Context, userID string) (int64, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, Role: "member", Status: models.UserStatusActive}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error) {
	if s.getForUpdateFn == nil {
		return models.User{ID: userID, Role: "member", Status: models.UserStatusActive}, nil
	}
	return s.getForUpdateFn(ctx, tx, userID)
}

func (s stubUserStore) UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, userID, balance)
}

func (s stubUserStore) GetBalance(ctx context.Context, userID string) (int64, error) {
	if s.getBalanceFn == nil {
		return 0, nil
	}
	return s.getBalanceFn(ctx, userID)
}

type stubDepositStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.DepositInput) error
	getByIDFn      func(ctx context.Context, depositID string) (models.DepositRequest, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, depositID string) (models.DepositRequest, error)
	decideFn       func(ctx context.Context, tx store.Execer, decision store.DepositDecision) (int64, error)
}

func (s stubDepositStore) Create(ctx context.Context, tx store.Execer, input store.DepositInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubDepositStore) GetByID(ctx context.Context, depositID string) (models.DepositRequest, error) {
	return s.getByIDFn(ctx, depositID)
}

func (s stubDepositStore) GetForUpdate(ctx context.Context, tx store.Getter, depositID string) (models.DepositRequest, error) {
	return s.getForUpdateFn(ctx, tx, depositID)
}

func (s stubDepositStore) Decide(ctx context.Context, tx store.Execer, decision store.DepositDecision) (int64, error) {
	if s.decideFn == nil {
		return 1, nil
	}
	return s.decideFn(ctx, tx, decision)
}

func (s stubDepositStore) ListByUser(context.Context, string, string, int, int) ([]models.DepositRequest, error) {
	return nil, nil
}

func (s stubDepositStore) ListAll(context.Context, string, int, int) ([]models.DepositRequest, error) {
	return nil, nil
}

type stubTransactionStore struct {
	createFn func(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

type stubMessageWriter struct {
	createFn func(ctx context.Context, tx store.Execer, input store.MessageInput) error
}

func (s stubMessageWriter) Create(ctx context.Context, tx store.Execer, input store.MessageInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubListingStore struct {
	memListings
	getForUpdateFn func(ctx context.Context, tx store.Getter, listingID string) (models.ListingPost, error)
	approveFn      func(ctx context.Context, tx store.Execer, listingID string, featured bool, adminNotes *string, approvedBy string, expiresAt time.Time) (int64, error)
}

func (s stubListingStore) GetForUpdate(ctx context.Context, tx store.Getter, listingID string) (models.ListingPost, error) {
	return s.getForUpdateFn(ctx, tx, listingID)
}

func (s stubListingStore) Approve(ctx context.Context, tx store.Execer, listingID string, featured bool, adminNotes *string, approvedBy string, expiresAt time.Time) (int64, error) {
	return s.approveFn(ctx, tx, listingID, featured, adminNotes, approvedBy, expiresAt)
}

type failingCache struct {
	err error
}

func (c failingCache) Get(context.Context, string) (int64, int64, bool, error) { return 0, 0, false, c.err }
func (c failingCache) Set(context.Context, string, int64, int64) error         { return c.err }
func (c failingCache) Invalidate(context.Context, string) error               { return c.err }
