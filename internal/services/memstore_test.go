package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"realestate/internal/auth"
	"realestate/internal/listing"
	"realestate/internal/media"
	"realestate/internal/models"
	"realestate/internal/store"

	"github.com/jmoiron/sqlx"
)

// memWorld is an in-memory stand-in for the database. Each store method
// enforces the same row-level guards as its SQL counterpart (CAS on status,
// CHECK constraints, foreign keys) and memTxRunner gives all-or-nothing
// commits.
type memWorld struct {
	mu           sync.Mutex
	users        map[string]models.User
	deposits     map[string]models.DepositRequest
	listings     map[string]models.ListingPost
	deleted      map[string]bool
	transactions []models.Transaction
	messages     map[string]models.Message
	tickets      map[string]models.Ticket
	audits       []string
}

type memSnapshot struct {
	users        map[string]models.User
	deposits     map[string]models.DepositRequest
	listings     map[string]models.ListingPost
	deleted      map[string]bool
	transactions []models.Transaction
	messages     map[string]models.Message
	audits       []string
}

var errConstraint = errors.New("constraint violation")

func newMemWorld() *memWorld {
	w := &memWorld{
		users:    map[string]models.User{},
		deposits: map[string]models.DepositRequest{},
		listings: map[string]models.ListingPost{},
		deleted:  map[string]bool{},
		messages: map[string]models.Message{},
		tickets:  map[string]models.Ticket{},
	}
	w.addUser("admin-1", auth.RoleAdmin, models.UserStatusActive)
	w.addUser("user-1", auth.RoleMember, models.UserStatusActive)
	w.addUser("user-2", auth.RoleMember, models.UserStatusActive)
	w.addUser("suspended-1", auth.RoleMember, models.UserStatusSuspended)
	return w
}

func (w *memWorld) addUser(id, role, status string) {
	w.users[id] = models.User{ID: id, Username: id, Role: role, Status: status}
}

// seedBalance credits a user through an adjustment row so the ledger stays
// consistent with the stored balance.
func (w *memWorld) seedBalance(userID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	user := w.users[userID]
	user.WalletBalance += amount
	w.users[userID] = user
	w.transactions = append(w.transactions, models.Transaction{
		ID: "seed-" + userID, UserID: userID, Type: models.TransactionAdjustment,
		Status: models.TransactionCompleted, Amount: amount,
	})
}

func (w *memWorld) balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.users[userID].WalletBalance
}

func (w *memWorld) ledgerSum(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sum int64
	for _, row := range w.transactions {
		if row.UserID == userID && row.Status == models.TransactionCompleted {
			sum += row.Amount
		}
	}
	return sum
}

func (w *memWorld) transactionsOf(userID, txType string) []models.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows := []models.Transaction{}
	for _, row := range w.transactions {
		if row.UserID == userID && (txType == "" || row.Type == txType) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (w *memWorld) snapshot() memSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := memSnapshot{
		users:        make(map[string]models.User, len(w.users)),
		deposits:     make(map[string]models.DepositRequest, len(w.deposits)),
		listings:     make(map[string]models.ListingPost, len(w.listings)),
		deleted:      make(map[string]bool, len(w.deleted)),
		transactions: append([]models.Transaction(nil), w.transactions...),
		messages:     make(map[string]models.Message, len(w.messages)),
		audits:       append([]string(nil), w.audits...),
	}
	for k, v := range w.users {
		snap.users[k] = v
	}
	for k, v := range w.deposits {
		snap.deposits[k] = v
	}
	for k, v := range w.listings {
		snap.listings[k] = v
	}
	for k, v := range w.deleted {
		snap.deleted[k] = v
	}
	for k, v := range w.messages {
		snap.messages[k] = v
	}
	return snap
}

func (w *memWorld) restore(snap memSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users = snap.users
	w.deposits = snap.deposits
	w.listings = snap.listings
	w.deleted = snap.deleted
	w.transactions = snap.transactions
	w.messages = snap.messages
	w.audits = snap.audits
}

// memTxRunner serializes transactions and rolls back the world when the
// closure fails, like a SERIALIZABLE transaction that never needs a retry.
type memTxRunner struct {
	world *memWorld
	txMu  sync.Mutex
	calls int
}

func (r *memTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.calls++
	snap := r.world.snapshot()
	if err := fn(nil); err != nil {
		r.world.restore(snap)
		return err
	}
	return nil
}

type memUsers struct{ w *memWorld }

func (s memUsers) GetByID(_ context.Context, userID string) (models.User, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	user, ok := s.w.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s memUsers) AnyActiveAdmin(context.Context) (string, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	ids := []string{}
	for id, user := range s.w.users {
		if user.Role == auth.RoleAdmin && user.Status == models.UserStatusActive {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", sql.ErrNoRows
	}
	sort.Strings(ids)
	return ids[0], nil
}

func (s memUsers) GetForUpdate(ctx context.Context, _ store.Getter, userID string) (models.User, error) {
	return s.GetByID(ctx, userID)
}

func (s memUsers) GetBalance(ctx context.Context, userID string) (int64, error) {
	user, err := s.GetByID(ctx, userID)
	return user.WalletBalance, err
}

func (s memUsers) UpdateBalance(_ context.Context, _ store.Execer, userID string, balance int64) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if balance < 0 {
		return errConstraint
	}
	user := s.w.users[userID]
	user.WalletBalance = balance
	s.w.users[userID] = user
	return nil
}

type memLedger struct{ w *memWorld }

func (s memLedger) Create(_ context.Context, _ store.Execer, input store.TransactionInput) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	switch {
	case input.Type == models.TransactionDeposit && input.Amount <= 0,
		input.Type == models.TransactionFee && input.Amount >= 0:
		return errConstraint
	}
	s.w.transactions = append(s.w.transactions, models.Transaction{
		ID: input.ID, UserID: input.UserID, Type: input.Type, Status: input.Status, Amount: input.Amount,
		Description: input.Description, ReferenceID: input.ReferenceID, AdminNotes: input.AdminNotes,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s memLedger) ListByUser(_ context.Context, userID, txType string, _, _ int) ([]models.Transaction, error) {
	return s.w.transactionsOf(userID, txType), nil
}

func (s memLedger) Reconcile(_ context.Context, userID string) ([]models.BalanceCheck, error) {
	s.w.mu.Lock()
	ids := []string{}
	for id := range s.w.users {
		if userID == "" || id == userID {
			ids = append(ids, id)
		}
	}
	s.w.mu.Unlock()
	sort.Strings(ids)
	rows := []models.BalanceCheck{}
	for _, id := range ids {
		stored := s.w.balance(id)
		sum := s.w.ledgerSum(id)
		rows = append(rows, models.BalanceCheck{UserID: id, Username: id, StoredBalance: stored, LedgerSum: sum, Difference: stored - sum})
	}
	return rows, nil
}

func (s memLedger) exists(id string) bool {
	for _, row := range s.w.transactions {
		if row.ID == id {
			return true
		}
	}
	return false
}

type memDeposits struct{ w *memWorld }

func (s memDeposits) Create(_ context.Context, _ store.Execer, input store.DepositInput) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.w.deposits[input.ID] = models.DepositRequest{
		ID: input.ID, UserID: input.UserID, Amount: input.Amount, Method: input.Method,
		TransferBill: input.TransferBill, Description: input.Description, Status: "pending",
	}
	return nil
}

func (s memDeposits) GetByID(_ context.Context, depositID string) (models.DepositRequest, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	deposit, ok := s.w.deposits[depositID]
	if !ok {
		return models.DepositRequest{}, sql.ErrNoRows
	}
	return deposit, nil
}

func (s memDeposits) GetForUpdate(ctx context.Context, _ store.Getter, depositID string) (models.DepositRequest, error) {
	return s.GetByID(ctx, depositID)
}

func (s memDeposits) Decide(_ context.Context, _ store.Execer, decision store.DepositDecision) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	deposit, ok := s.w.deposits[decision.ID]
	if !ok || deposit.Status != "pending" {
		return 0, nil
	}
	if (decision.Status == "approved") != (decision.TransactionID != nil) {
		return 0, errConstraint
	}
	if decision.TransactionID != nil && !(memLedger{s.w}).exists(*decision.TransactionID) {
		return 0, errConstraint
	}
	reviewedBy := decision.ReviewedBy
	now := time.Now()
	deposit.Status = decision.Status
	deposit.AdminNotes = decision.AdminNotes
	deposit.ReviewedBy = &reviewedBy
	deposit.ReviewedAt = &now
	deposit.TransactionID = decision.TransactionID
	s.w.deposits[decision.ID] = deposit
	return 1, nil
}

func (s memDeposits) ListByUser(_ context.Context, userID, status string, _, _ int) ([]models.DepositRequest, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.DepositRequest{}
	for _, row := range s.w.deposits {
		if row.UserID == userID && (status == "" || row.Status == status) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s memDeposits) ListAll(_ context.Context, status string, _, _ int) ([]models.DepositRequest, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.DepositRequest{}
	for _, row := range s.w.deposits {
		if status == "" || row.Status == status {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type memListings struct{ w *memWorld }

func (s memListings) Create(_ context.Context, _ store.Execer, input store.ListingInput) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if input.FeeTransactionID != nil && !(memLedger{s.w}).exists(*input.FeeTransactionID) {
		return errConstraint
	}
	s.w.listings[input.ID] = models.ListingPost{
		ID: input.ID, AuthorID: input.AuthorID, PostType: input.PostType, Title: input.Title,
		Description: input.Description, Price: input.Price, Images: input.Images,
		ContactPhone: input.ContactPhone, ContactEmail: input.ContactEmail,
		Details: []byte(input.Details), Status: "pending", FeeTransactionID: input.FeeTransactionID,
	}
	return nil
}

func (s memListings) get(listingID string) (models.ListingPost, error) {
	post, ok := s.w.listings[listingID]
	if !ok || s.w.deleted[listingID] {
		return models.ListingPost{}, sql.ErrNoRows
	}
	return post, nil
}

func (s memListings) GetByID(_ context.Context, listingID string) (models.ListingPost, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.get(listingID)
}

func (s memListings) GetForUpdate(ctx context.Context, _ store.Getter, listingID string) (models.ListingPost, error) {
	return s.GetByID(ctx, listingID)
}

func (s memListings) Approve(_ context.Context, _ store.Execer, listingID string, featured bool, adminNotes *string, approvedBy string, expiresAt time.Time) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	post, err := s.get(listingID)
	if err != nil || post.Status != "pending" {
		return 0, nil
	}
	now := time.Now()
	post.Status = "approved"
	post.Featured = featured
	post.AdminNotes = adminNotes
	post.ApprovedBy = &approvedBy
	post.ApprovedAt = &now
	post.ExpiresAt = &expiresAt
	s.w.listings[listingID] = post
	return 1, nil
}

func (s memListings) Reject(_ context.Context, _ store.Execer, listingID, reason string, adminNotes *string) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	post, err := s.get(listingID)
	if err != nil || post.Status != "pending" {
		return 0, nil
	}
	post.Status = "rejected"
	post.RejectionReason = &reason
	post.AdminNotes = adminNotes
	s.w.listings[listingID] = post
	return 1, nil
}

func (s memListings) UpdatePending(_ context.Context, _ store.Execer, input store.ListingInput) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	post, err := s.get(input.ID)
	if err != nil || post.Status != "pending" || post.AuthorID != input.AuthorID || post.PostType != input.PostType {
		return 0, nil
	}
	post.Title = input.Title
	post.Description = input.Description
	post.Price = input.Price
	post.Images = input.Images
	post.Details = []byte(input.Details)
	s.w.listings[input.ID] = post
	return 1, nil
}

func (s memListings) DeletePending(_ context.Context, _ store.Execer, listingID, authorID string) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	post, err := s.get(listingID)
	if err != nil || post.Status != "pending" || post.AuthorID != authorID {
		return 0, nil
	}
	s.w.deleted[listingID] = true
	return 1, nil
}

func (s memListings) visible(post models.ListingPost) bool {
	return post.Status == "approved" && !s.w.deleted[post.ID] && (post.ExpiresAt == nil || post.ExpiresAt.After(time.Now()))
}

func (s memListings) ListPublic(_ context.Context, filter store.PublicFilter, _, _ int) ([]models.ListingPost, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.ListingPost{}
	for _, post := range s.w.listings {
		if !s.visible(post) || (filter.PostType != "" && post.PostType != filter.PostType) {
			continue
		}
		rows = append(rows, post)
	}
	return rows, nil
}

func (s memListings) GetPublic(_ context.Context, listingID string) (models.ListingPost, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	post, ok := s.w.listings[listingID]
	if !ok || !s.visible(post) {
		return models.ListingPost{}, sql.ErrNoRows
	}
	post.Views++
	s.w.listings[listingID] = post
	return post, nil
}

func (s memListings) ListByAuthor(_ context.Context, authorID, status string, _, _ int) ([]models.ListingPost, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.ListingPost{}
	for id, post := range s.w.listings {
		if post.AuthorID == authorID && !s.w.deleted[id] && (status == "" || post.Status == status) {
			rows = append(rows, post)
		}
	}
	return rows, nil
}

func (s memListings) ListAll(_ context.Context, status, postType string, _, _ int) ([]models.ListingPost, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.ListingPost{}
	for id, post := range s.w.listings {
		if s.w.deleted[id] || (status != "" && post.Status != status) || (postType != "" && post.PostType != postType) {
			continue
		}
		rows = append(rows, post)
	}
	return rows, nil
}

type memMessages struct{ w *memWorld }

func (s memMessages) Create(_ context.Context, _ store.Execer, input store.MessageInput) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if input.TicketID != nil && input.DepositID != nil {
		return errConstraint
	}
	s.w.messages[input.ID] = models.Message{
		ID: input.ID, TicketID: input.TicketID, DepositID: input.DepositID, FromUserID: input.FromUserID,
		FromType: input.FromType, ToUserID: input.ToUserID, Message: input.Message, CreatedAt: time.Now(),
	}
	return nil
}

func (s memMessages) GetByID(_ context.Context, messageID string) (models.Message, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	message, ok := s.w.messages[messageID]
	if !ok {
		return models.Message{}, sql.ErrNoRows
	}
	return message, nil
}

func (s memMessages) MarkRead(_ context.Context, messageID, userID string) (int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	message, ok := s.w.messages[messageID]
	if !ok || message.ToUserID != userID {
		return 0, nil
	}
	message.Read = true
	s.w.messages[messageID] = message
	return 1, nil
}

func (s memMessages) filter(match func(models.Message) bool) []models.Message {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	rows := []models.Message{}
	for _, message := range s.w.messages {
		if match(message) {
			rows = append(rows, message)
		}
	}
	return rows
}

func (s memMessages) ListForUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]models.Message, error) {
	return s.filter(func(m models.Message) bool {
		if unreadOnly {
			return m.ToUserID == userID && !m.Read
		}
		return m.ToUserID == userID || m.FromUserID == userID
	}), nil
}

func (s memMessages) ListByDeposit(_ context.Context, depositID string) ([]models.Message, error) {
	return s.filter(func(m models.Message) bool { return m.DepositID != nil && *m.DepositID == depositID }), nil
}

func (s memMessages) ListByTicket(_ context.Context, ticketID string) ([]models.Message, error) {
	return s.filter(func(m models.Message) bool { return m.TicketID != nil && *m.TicketID == ticketID }), nil
}

func (s memMessages) UnreadCount(_ context.Context, userID string) (int, error) {
	return len(s.filter(func(m models.Message) bool { return m.ToUserID == userID && !m.Read })), nil
}

type memTickets struct{ w *memWorld }

func (s memTickets) GetByID(_ context.Context, ticketID string) (models.Ticket, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	ticket, ok := s.w.tickets[ticketID]
	if !ok {
		return models.Ticket{}, sql.ErrNoRows
	}
	return ticket, nil
}

type memAudit struct{ w *memWorld }

func (s memAudit) Log(_ context.Context, _ store.Execer, _, action, _, _, _ string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.w.audits = append(s.w.audits, action)
	return nil
}

// recordingCache mirrors the Redis cache: Invalidate bumps a per-user
// generation and Set is ignored when the generation moved.
type recordingCache struct {
	mu          sync.Mutex
	values      map[string]int64
	generations map[string]int64
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: map[string]int64{}, generations: map[string]int64{}}
}

func (c *recordingCache) Get(_ context.Context, userID string) (int64, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[userID]
	return value, c.generations[userID], ok, nil
}

func (c *recordingCache) Set(_ context.Context, userID string, generation, balance int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return nil
	}
	c.values[userID] = balance
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	delete(c.values, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type stubMedia struct {
	saved []media.File
}

func (s *stubMedia) Save(_ context.Context, file media.File) (string, error) {
	s.saved = append(s.saved, file)
	return "/media/stored-" + file.Folder, nil
}

const (
	testMinDeposit = 10000 * 100
	testMaxDeposit = 50000000 * 100
	testPostingFee = 50000 * 100
)

type testApp struct {
	world    *memWorld
	runner   *memTxRunner
	cache    *recordingCache
	media    *stubMedia
	deposits *DepositService
	listings *ListingService
	messages *MessageService
	wallet   *WalletService
}

func newTestApp() *testApp {
	world := newMemWorld()
	runner := &memTxRunner{world: world}
	balances := newRecordingCache()
	files := &stubMedia{}
	users := memUsers{world}
	ledger := memLedger{world}
	audit := memAudit{world}
	messages := memMessages{world}
	return &testApp{
		world:  world,
		runner: runner,
		cache:  balances,
		media:  files,
		deposits: NewDepositService(runner, users, memDeposits{world}, ledger, messages, audit, balances, files,
			DepositLimits{Min: testMinDeposit, Max: testMaxDeposit}),
		listings: NewListingService(runner, users, memListings{world}, ledger, audit, balances, files,
			ListingPolicy{PostingFee: testPostingFee, Lifetime: 30 * 24 * time.Hour}),
		messages: NewMessageService(runner, users, memDeposits{world}, memTickets{world}, messages),
		wallet:   NewWalletService(runner, users, ledger, audit, balances),
	}
}

var (
	adminActor  = Actor{UserID: "admin-1", Role: auth.RoleAdmin}
	memberActor = Actor{UserID: "user-1", Role: auth.RoleMember}
	otherActor  = Actor{UserID: "user-2", Role: auth.RoleMember}
)

func propertyDraft() listing.Draft {
	return listing.Draft{
		PostType:     listing.TypeProperty,
		Title:        "Apartment in District 1",
		Description:  "Two bedrooms near the river",
		Price:        250000000000,
		ContactPhone: "0901234567",
		Details: &listing.Property{
			PropertyType:   "apartment",
			PropertyStatus: "for_sale",
			Area:           75,
			Bedrooms:       2,
			Bathrooms:      2,
			Address:        "12 Nguyen Hue",
			District:       "District 1",
			City:           "Ho Chi Minh",
		},
	}
}
