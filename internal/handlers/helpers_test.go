package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realestate/internal/auth"
	"realestate/internal/config"
	"realestate/internal/listing"
	"realestate/internal/media"
	"realestate/internal/models"
	"realestate/internal/services"
	"realestate/internal/store"

	"github.com/jmoiron/sqlx"
)

const testSecret = "secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn       func(ctx context.Context, tx store.Execer, user store.NewUser) error
	getByLoginFn   func(ctx context.Context, login string) (models.User, error)
	getByIDFn      func(ctx context.Context, userID string) (models.User, error)
	getAccessFn    func(ctx context.Context, userID string) (string, string, error)
	updateStatusFn func(ctx context.Context, tx store.Execer, userID, status string) (int64, error)
	touchFn        func(ctx context.Context, userID string) error
	hasAnyAdminFn  func(ctx context.Context, tx store.Getter) (bool, error)
	listFn         func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user store.NewUser) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByLogin(ctx context.Context, login string) (models.User, error) {
	if s.getByLoginFn == nil {
		return models.User{}, nil
	}
	return s.getByLoginFn(ctx, login)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

// GetAccess treats admin-1 as the only admin unless overridden.
func (s stubUserStore) GetAccess(ctx context.Context, userID string) (string, string, error) {
	if s.getAccessFn != nil {
		return s.getAccessFn(ctx, userID)
	}
	if userID == "admin-1" {
		return auth.RoleAdmin, models.UserStatusActive, nil
	}
	return auth.RoleMember, models.UserStatusActive, nil
}

func (s stubUserStore) UpdateStatus(ctx context.Context, tx store.Execer, userID, status string) (int64, error) {
	if s.updateStatusFn == nil {
		return 1, nil
	}
	return s.updateStatusFn(ctx, tx, userID, status)
}

func (s stubUserStore) TouchLastLogin(ctx context.Context, userID string) error {
	if s.touchFn == nil {
		return nil
	}
	return s.touchFn(ctx, userID)
}

func (s stubUserStore) HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx, tx)
}

func (s stubUserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubTicketStore struct {
	createFn     func(ctx context.Context, tx store.Execer, input store.TicketInput) error
	getByIDFn    func(ctx context.Context, ticketID string) (models.Ticket, error)
	updateFn     func(ctx context.Context, tx store.Execer, ticketID string, update store.TicketUpdate) (int64, error)
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]models.Ticket, error)
	listAllFn    func(ctx context.Context, status string, limit, offset int) ([]models.Ticket, error)
}

func (s stubTicketStore) Create(ctx context.Context, tx store.Execer, input store.TicketInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubTicketStore) GetByID(ctx context.Context, ticketID string) (models.Ticket, error) {
	if s.getByIDFn == nil {
		return models.Ticket{ID: ticketID}, nil
	}
	return s.getByIDFn(ctx, ticketID)
}

func (s stubTicketStore) Update(ctx context.Context, tx store.Execer, ticketID string, update store.TicketUpdate) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, ticketID, update)
}

func (s stubTicketStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Ticket, error) {
	if s.listByUserFn == nil {
		return []models.Ticket{}, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubTicketStore) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Ticket, error) {
	if s.listAllFn == nil {
		return []models.Ticket{}, nil
	}
	return s.listAllFn(ctx, status, limit, offset)
}

type stubSettingsStore struct {
	getFn    func(ctx context.Context) (models.BankInfo, error)
	updateFn func(ctx context.Context, tx store.Execer, info models.BankInfo) error
}

func (s stubSettingsStore) GetBankInfo(ctx context.Context) (models.BankInfo, error) {
	if s.getFn == nil {
		return models.BankInfo{}, nil
	}
	return s.getFn(ctx)
}

func (s stubSettingsStore) UpdateBankInfo(ctx context.Context, tx store.Execer, info models.BankInfo) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, info)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, entityType string, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, entityType string, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return []models.AuditLog{}, nil
	}
	return s.listFn(ctx, entityType, limit, offset)
}

type stubDepositService struct {
	submitFn   func(ctx context.Context, actor services.Actor, req services.DepositSubmission) (models.DepositRequest, error)
	approveFn  func(ctx context.Context, actor services.Actor, depositID, adminNotes string) (models.Transaction, error)
	rejectFn   func(ctx context.Context, actor services.Actor, depositID, reason string) (models.DepositRequest, error)
	getFn      func(ctx context.Context, actor services.Actor, depositID string) (models.DepositRequest, error)
	listMineFn func(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error)
	listAllFn  func(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error)
}

func (s stubDepositService) Submit(ctx context.Context, actor services.Actor, req services.DepositSubmission) (models.DepositRequest, error) {
	return s.submitFn(ctx, actor, req)
}

func (s stubDepositService) Approve(ctx context.Context, actor services.Actor, depositID, adminNotes string) (models.Transaction, error) {
	return s.approveFn(ctx, actor, depositID, adminNotes)
}

func (s stubDepositService) Reject(ctx context.Context, actor services.Actor, depositID, reason string) (models.DepositRequest, error) {
	return s.rejectFn(ctx, actor, depositID, reason)
}

func (s stubDepositService) Get(ctx context.Context, actor services.Actor, depositID string) (models.DepositRequest, error) {
	return s.getFn(ctx, actor, depositID)
}

func (s stubDepositService) ListMine(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error) {
	return s.listMineFn(ctx, actor, status, limit, offset)
}

func (s stubDepositService) ListAll(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error) {
	return s.listAllFn(ctx, actor, status, limit, offset)
}

type stubListingService struct {
	fee          int64
	submitFn     func(ctx context.Context, actor services.Actor, draft listing.Draft) (models.ListingPost, error)
	approveFn    func(ctx context.Context, actor services.Actor, listingID string, featured bool, adminNotes string) (models.ListingPost, error)
	rejectFn     func(ctx context.Context, actor services.Actor, listingID, reason string) (models.ListingPost, error)
	updateFn     func(ctx context.Context, actor services.Actor, listingID string, draft listing.Draft) (models.ListingPost, error)
	deleteFn     func(ctx context.Context, actor services.Actor, listingID string) error
	listPublicFn func(ctx context.Context, filter services.ListingFilter, limit, offset int) ([]models.ListingPost, error)
	getPublicFn  func(ctx context.Context, listingID string) (models.ListingPost, error)
	getFn        func(ctx context.Context, actor services.Actor, listingID string) (models.ListingPost, error)
	listMineFn   func(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.ListingPost, error)
	listAllFn    func(ctx context.Context, actor services.Actor, status, postType string, limit, offset int) ([]models.ListingPost, error)
}

func (s stubListingService) Fee() int64 { return s.fee }

func (s stubListingService) Submit(ctx context.Context, actor services.Actor, draft listing.Draft) (models.ListingPost, error) {
	return s.submitFn(ctx, actor, draft)
}

func (s stubListingService) Approve(ctx context.Context, actor services.Actor, listingID string, featured bool, adminNotes string) (models.ListingPost, error) {
	return s.approveFn(ctx, actor, listingID, featured, adminNotes)
}

func (s stubListingService) Reject(ctx context.Context, actor services.Actor, listingID, reason string) (models.ListingPost, error) {
	return s.rejectFn(ctx, actor, listingID, reason)
}

func (s stubListingService) Update(ctx context.Context, actor services.Actor, listingID string, draft listing.Draft) (models.ListingPost, error) {
	return s.updateFn(ctx, actor, listingID, draft)
}

func (s stubListingService) Delete(ctx context.Context, actor services.Actor, listingID string) error {
	return s.deleteFn(ctx, actor, listingID)
}

func (s stubListingService) ListPublic(ctx context.Context, filter services.ListingFilter, limit, offset int) ([]models.ListingPost, error) {
	return s.listPublicFn(ctx, filter, limit, offset)
}

func (s stubListingService) GetPublic(ctx context.Context, listingID string) (models.ListingPost, error) {
	return s.getPublicFn(ctx, listingID)
}

func (s stubListingService) Get(ctx context.Context, actor services.Actor, listingID string) (models.ListingPost, error) {
	return s.getFn(ctx, actor, listingID)
}

func (s stubListingService) ListMine(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.ListingPost, error) {
	return s.listMineFn(ctx, actor, status, limit, offset)
}

func (s stubListingService) ListAll(ctx context.Context, actor services.Actor, status, postType string, limit, offset int) ([]models.ListingPost, error) {
	return s.listAllFn(ctx, actor, status, postType, limit, offset)
}

type stubMessageService struct {
	postFn          func(ctx context.Context, actor services.Actor, req services.MessagePost) (models.Message, error)
	markReadFn      func(ctx context.Context, actor services.Actor, messageID string) error
	listMineFn      func(ctx context.Context, actor services.Actor, unreadOnly bool, limit, offset int) ([]models.Message, error)
	unreadCountFn   func(ctx context.Context, actor services.Actor) (int, error)
	listByDepositFn func(ctx context.Context, actor services.Actor, depositID string) ([]models.Message, error)
	listByTicketFn  func(ctx context.Context, actor services.Actor, ticketID string) ([]models.Message, error)
}

func (s stubMessageService) Post(ctx context.Context, actor services.Actor, req services.MessagePost) (models.Message, error) {
	return s.postFn(ctx, actor, req)
}

func (s stubMessageService) MarkRead(ctx context.Context, actor services.Actor, messageID string) error {
	return s.markReadFn(ctx, actor, messageID)
}

func (s stubMessageService) ListMine(ctx context.Context, actor services.Actor, unreadOnly bool, limit, offset int) ([]models.Message, error) {
	return s.listMineFn(ctx, actor, unreadOnly, limit, offset)
}

func (s stubMessageService) UnreadCount(ctx context.Context, actor services.Actor) (int, error) {
	return s.unreadCountFn(ctx, actor)
}

func (s stubMessageService) ListByDeposit(ctx context.Context, actor services.Actor, depositID string) ([]models.Message, error) {
	return s.listByDepositFn(ctx, actor, depositID)
}

func (s stubMessageService) ListByTicket(ctx context.Context, actor services.Actor, ticketID string) ([]models.Message, error) {
	return s.listByTicketFn(ctx, actor, ticketID)
}

type stubWalletService struct {
	balanceFn      func(ctx context.Context, actor services.Actor) (int64, error)
	transactionsFn func(ctx context.Context, actor services.Actor, txType string, limit, offset int) ([]models.Transaction, error)
	adjustFn       func(ctx context.Context, actor services.Actor, userID string, amount int64, reason string) (models.Transaction, error)
	reconcileFn    func(ctx context.Context, actor services.Actor) ([]models.BalanceCheck, error)
	selfCheckFn    func(ctx context.Context, actor services.Actor) (models.BalanceCheck, error)
}

func (s stubWalletService) Balance(ctx context.Context, actor services.Actor) (int64, error) {
	return s.balanceFn(ctx, actor)
}

func (s stubWalletService) Transactions(ctx context.Context, actor services.Actor, txType string, limit, offset int) ([]models.Transaction, error) {
	return s.transactionsFn(ctx, actor, txType, limit, offset)
}

func (s stubWalletService) Adjust(ctx context.Context, actor services.Actor, userID string, amount int64, reason string) (models.Transaction, error) {
	return s.adjustFn(ctx, actor, userID, amount, reason)
}

func (s stubWalletService) Reconcile(ctx context.Context, actor services.Actor) ([]models.BalanceCheck, error) {
	return s.reconcileFn(ctx, actor)
}

func (s stubWalletService) SelfCheck(ctx context.Context, actor services.Actor) (models.BalanceCheck, error) {
	return s.selfCheckFn(ctx, actor)
}

type stubMediaStore struct {
	saveFn func(ctx context.Context, file media.File) (string, error)
	openFn func(ctx context.Context, id string) (media.File, error)
}

func (s stubMediaStore) Save(ctx context.Context, file media.File) (string, error) {
	return s.saveFn(ctx, file)
}

func (s stubMediaStore) Open(ctx context.Context, id string) (media.File, error) {
	return s.openFn(ctx, id)
}

// testDeps leaves unset collaborators as empty stubs; calling an unset
// service method panics, which fails the test loudly.
type testDeps struct {
	txRunner fakeTxRunner
	users    stubUserStore
	tickets  stubTicketStore
	settings stubSettingsStore
	audit    stubAuditStore
	deposits stubDepositService
	listings stubListingService
	messages stubMessageService
	wallet   stubWalletService
	files    stubMediaStore
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{JWTSecret: testSecret, TokenTTL: time.Hour, AllowedOrigins: "*"}
	return New(deps.txRunner, cfg, deps.users, deps.tickets, deps.settings, deps.audit, deps.deposits, deps.listings, deps.messages, deps.wallet, deps.files)
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, role, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

// serve sends a request through the full router. An empty authorization
// sends the request anonymously.
func serve(t *testing.T, handler *Handler, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serveWith(t, handler.Routes(), method, path, authorization, body)
}

func serveWith(t *testing.T, router http.Handler, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch value := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(value))
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["error"]; got != code {
		t.Fatalf("expected error %q, got %v", code, got)
	}
}
