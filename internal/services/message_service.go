package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"realestate/internal/auth"
	"realestate/internal/db"
	"realestate/internal/models"
	"realestate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxMessageLength = 5000

type MessageStore interface {
	MessageWriter
	GetByID(ctx context.Context, messageID string) (models.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) (int64, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Message, error)
	ListByDeposit(ctx context.Context, depositID string) ([]models.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]models.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type DepositReader interface {
	GetByID(ctx context.Context, depositID string) (models.DepositRequest, error)
}

type TicketReader interface {
	GetByID(ctx context.Context, ticketID string) (models.Ticket, error)
}

// Recipients resolves message addressees.
type Recipients interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	AnyActiveAdmin(ctx context.Context) (string, error)
}

type MessageService struct {
	txRunner db.TxRunner
	users    Recipients
	deposits DepositReader
	tickets  TicketReader
	messages MessageStore
	now      func() time.Time
}

func NewMessageService(txRunner db.TxRunner, users Recipients, deposits DepositReader, tickets TicketReader, messages MessageStore) *MessageService {
	return &MessageService{
		txRunner: txRunner,
		users:    users,
		deposits: deposits,
		tickets:  tickets,
		messages: messages,
		now:      time.Now,
	}
}

// MessagePost correlates to at most one of a ticket or a deposit. With
// neither set the message is a general note.
type MessagePost struct {
	TicketID  string
	DepositID string
	ToUserID  string
	Message   string
}

func (s *MessageService) Post(ctx context.Context, actor Actor, req MessagePost) (models.Message, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if len(text) > maxMessageLength {
		return models.Message{}, ErrMessageTooLong
	}
	ticketID := optional(req.TicketID)
	depositID := optional(req.DepositID)
	if ticketID != nil && depositID != nil {
		return models.Message{}, ErrInvalidCorrelation
	}

	to := strings.TrimSpace(req.ToUserID)
	switch {
	case depositID != nil:
		deposit, err := s.deposits.GetByID(ctx, *depositID)
		if err != nil {
			return models.Message{}, notFound(err)
		}
		if !actor.IsAdmin() && deposit.UserID != actor.UserID {
			return models.Message{}, ErrForbidden
		}
		if to == "" {
			if actor.IsAdmin() {
				to = deposit.UserID
			} else if deposit.ReviewedBy != nil {
				to = *deposit.ReviewedBy
			}
		}
	case ticketID != nil:
		ticket, err := s.tickets.GetByID(ctx, *ticketID)
		if err != nil {
			return models.Message{}, notFound(err)
		}
		owner := ""
		if ticket.UserID != nil {
			owner = *ticket.UserID
		}
		if !actor.IsAdmin() && owner != actor.UserID {
			return models.Message{}, ErrForbidden
		}
		if to == "" && actor.IsAdmin() {
			to = owner
		}
	}
	// A member writing in a thread nobody has picked up yet reaches the
	// admin desk.
	if to == "" && !actor.IsAdmin() && (depositID != nil || ticketID != nil) {
		admin, err := s.users.AnyActiveAdmin(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, err
		}
		to = admin
	}
	if to == "" || to == actor.UserID {
		return models.Message{}, ErrInvalidRecipient
	}
	recipient, err := s.users.GetByID(ctx, to)
	if err != nil {
		return models.Message{}, notFound(err)
	}
	if !actor.IsAdmin() && recipient.Role != auth.RoleAdmin {
		return models.Message{}, ErrForbidden
	}

	message := models.Message{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		DepositID:  depositID,
		FromUserID: actor.UserID,
		FromType:   actor.fromType(),
		ToUserID:   recipient.ID,
		Message:    text,
		CreatedAt:  s.now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.messages.Create(ctx, tx, store.MessageInput{
			ID:         message.ID,
			TicketID:   message.TicketID,
			DepositID:  message.DepositID,
			FromUserID: message.FromUserID,
			FromType:   message.FromType,
			ToUserID:   message.ToUserID,
			Message:    message.Message,
		})
	})
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// MarkRead is idempotent for the addressee and refused for everyone else.
func (s *MessageService) MarkRead(ctx context.Context, actor Actor, messageID string) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return notFound(err)
	}
	if message.ToUserID != actor.UserID {
		return ErrNotAddressee
	}
	if message.Read {
		return nil
	}
	changed, err := s.messages.MarkRead(ctx, messageID, actor.UserID)
	if err != nil {
		return err
	}
	if changed == 0 {
		return ErrNotAddressee
	}
	return nil
}

func (s *MessageService) ListMine(ctx context.Context, actor Actor, unreadOnly bool, limit, offset int) ([]models.Message, error) {
	return s.messages.ListForUser(ctx, actor.UserID, unreadOnly, limit, offset)
}

func (s *MessageService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	return s.messages.UnreadCount(ctx, actor.UserID)
}

func (s *MessageService) ListByDeposit(ctx context.Context, actor Actor, depositID string) ([]models.Message, error) {
	deposit, err := s.deposits.GetByID(ctx, depositID)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.IsAdmin() && deposit.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return s.messages.ListByDeposit(ctx, depositID)
}

func (s *MessageService) ListByTicket(ctx context.Context, actor Actor, ticketID string) ([]models.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.IsAdmin() && (ticket.UserID == nil || *ticket.UserID != actor.UserID) {
		return nil, ErrForbidden
	}
	return s.messages.ListByTicket(ctx, ticketID)
}
