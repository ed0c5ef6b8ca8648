package handlers

import (
	"context"

	"realestate/internal/listing"
	"realestate/internal/media"
	"realestate/internal/models"
	"realestate/internal/services"
	"realestate/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user store.NewUser) error
	GetByLogin(ctx context.Context, login string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetAccess(ctx context.Context, userID string) (string, string, error)
	UpdateStatus(ctx context.Context, tx store.Execer, userID, status string) (int64, error)
	TouchLastLogin(ctx context.Context, userID string) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type TicketStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TicketInput) error
	GetByID(ctx context.Context, ticketID string) (models.Ticket, error)
	Update(ctx context.Context, tx store.Execer, ticketID string, update store.TicketUpdate) (int64, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Ticket, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]models.Ticket, error)
}

type SettingsStore interface {
	GetBankInfo(ctx context.Context) (models.BankInfo, error)
	UpdateBankInfo(ctx context.Context, tx store.Execer, info models.BankInfo) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, entityType string, limit, offset int) ([]models.AuditLog, error)
}

type DepositService interface {
	Submit(ctx context.Context, actor services.Actor, req services.DepositSubmission) (models.DepositRequest, error)
	Approve(ctx context.Context, actor services.Actor, depositID, adminNotes string) (models.Transaction, error)
	Reject(ctx context.Context, actor services.Actor, depositID, reason string) (models.DepositRequest, error)
	Get(ctx context.Context, actor services.Actor, depositID string) (models.DepositRequest, error)
	ListMine(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error)
	ListAll(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.DepositRequest, error)
}

type ListingService interface {
	Fee() int64
	Submit(ctx context.Context, actor services.Actor, draft listing.Draft) (models.ListingPost, error)
	Approve(ctx context.Context, actor services.Actor, listingID string, featured bool, adminNotes string) (models.ListingPost, error)
	Reject(ctx context.Context, actor services.Actor, listingID, reason string) (models.ListingPost, error)
	Update(ctx context.Context, actor services.Actor, listingID string, draft listing.Draft) (models.ListingPost, error)
	Delete(ctx context.Context, actor services.Actor, listingID string) error
	ListPublic(ctx context.Context, filter services.ListingFilter, limit, offset int) ([]models.ListingPost, error)
	GetPublic(ctx context.Context, listingID string) (models.ListingPost, error)
	Get(ctx context.Context, actor services.Actor, listingID string) (models.ListingPost, error)
	ListMine(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.ListingPost, error)
	ListAll(ctx context.Context, actor services.Actor, status, postType string, limit, offset int) ([]models.ListingPost, error)
}

type MessageService interface {
	Post(ctx context.Context, actor services.Actor, req services.MessagePost) (models.Message, error)
	MarkRead(ctx context.Context, actor services.Actor, messageID string) error
	ListMine(ctx context.Context, actor services.Actor, unreadOnly bool, limit, offset int) ([]models.Message, error)
	UnreadCount(ctx context.Context, actor services.Actor) (int, error)
	ListByDeposit(ctx context.Context, actor services.Actor, depositID string) ([]models.Message, error)
	ListByTicket(ctx context.Context, actor services.Actor, ticketID string) ([]models.Message, error)
}

type WalletService interface {
	Balance(ctx context.Context, actor services.Actor) (int64, error)
	Transactions(ctx context.Context, actor services.Actor, txType string, limit, offset int) ([]models.Transaction, error)
	Adjust(ctx context.Context, actor services.Actor, userID string, amount int64, reason string) (models.Transaction, error)
	Reconcile(ctx context.Context, actor services.Actor) ([]models.BalanceCheck, error)
	SelfCheck(ctx context.Context, actor services.Actor) (models.BalanceCheck, error)
}

type MediaStore interface {
	media.Store
}
