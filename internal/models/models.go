package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusPending   = "pending"

	TransactionDeposit    = "deposit"
	TransactionFee        = "fee"
	TransactionAdjustment = "adjustment"

	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"

	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

type User struct {
	ID            string     `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	Phone         string     `db:"phone" json:"phone"`
	Role          string     `db:"role" json:"role"`
	Status        string     `db:"status" json:"status"`
	WalletBalance int64      `db:"wallet_balance" json:"wallet_balance"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
}

type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Type        string    `db:"type" json:"type"`
	Status      string    `db:"status" json:"status"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"`
	AdminNotes  *string   `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type DepositRequest struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	Amount        int64      `db:"amount" json:"amount"`
	Method        string     `db:"method" json:"method"`
	TransferBill  string     `db:"transfer_bill" json:"transfer_bill"`
	Description   string     `db:"description" json:"description"`
	Status        string     `db:"status" json:"status"`
	AdminNotes    *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	ReviewedBy    *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	TransactionID *string    `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type ListingPost struct {
	ID               string          `db:"id" json:"id"`
	AuthorID         string          `db:"author_id" json:"author_id"`
	PostType         string          `db:"post_type" json:"post_type"`
	Title            string          `db:"title" json:"title"`
	Description      string          `db:"description" json:"description"`
	Price            int64           `db:"price" json:"price"`
	Images           pq.StringArray  `db:"images" json:"images"`
	ContactPhone     string          `db:"contact_phone" json:"contact_phone"`
	ContactEmail     string          `db:"contact_email" json:"contact_email"`
	Details          json.RawMessage `db:"details" json:"details"`
	Status           string          `db:"status" json:"status"`
	Featured         bool            `db:"featured" json:"featured"`
	AdminNotes       *string         `db:"admin_notes" json:"admin_notes,omitempty"`
	RejectionReason  *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FeeTransactionID *string         `db:"fee_transaction_id" json:"fee_transaction_id,omitempty"`
	ApprovedBy       *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	ExpiresAt        *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	Views            int64           `db:"views" json:"views"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

type Ticket struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	Subject    string    `db:"subject" json:"subject"`
	Message    string    `db:"message" json:"message"`
	Status     string    `db:"status" json:"status"`
	Priority   string    `db:"priority" json:"priority"`
	AdminNotes *string   `db:"admin_notes" json:"admin_notes,omitempty"`
	AssignedTo *string   `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type Message struct {
	ID         string    `db:"id" json:"id"`
	TicketID   *string   `db:"ticket_id" json:"ticket_id,omitempty"`
	DepositID  *string   `db:"deposit_id" json:"deposit_id,omitempty"`
	FromUserID string    `db:"from_user_id" json:"from_user_id"`
	FromType   string    `db:"from_type" json:"from_type"`
	ToUserID   string    `db:"to_user_id" json:"to_user_id"`
	Message    string    `db:"message" json:"message"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type BankInfo struct {
	BankName      string    `db:"bank_name" json:"bank_name"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	AccountHolder string    `db:"account_holder" json:"account_holder"`
	Branch        string    `db:"branch" json:"branch"`
	QRCode        string    `db:"qr_code" json:"qr_code"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type BalanceCheck struct {
	UserID        string `db:"user_id" json:"user_id"`
	Username      string `db:"username" json:"username"`
	StoredBalance int64  `db:"stored_balance" json:"stored_balance"`
	LedgerSum     int64  `db:"ledger_sum" json:"ledger_sum"`
	Difference    int64  `db:"difference" json:"difference"`
}
