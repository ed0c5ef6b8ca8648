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
	"realestate/internal/listing"
	"realestate/internal/models"
	"realestate/internal/money"
	"realestate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ListingStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ListingInput) error
	GetByID(ctx context.Context, listingID string) (models.ListingPost, error)
	GetForUpdate(ctx context.Context, tx store.Getter, listingID string) (models.ListingPost, error)
	Approve(ctx context.Context, tx store.Execer, listingID string, featured bool, adminNotes *string, approvedBy string, expiresAt time.Time) (int64, error)
	Reject(ctx context.Context, tx store.Execer, listingID, reason string, adminNotes *string) (int64, error)
	UpdatePending(ctx context.Context, tx store.Execer, input store.ListingInput) (int64, error)
	DeletePending(ctx context.Context, tx store.Execer, listingID, authorID string) (int64, error)
	ListPublic(ctx context.Context, filter store.PublicFilter, limit, offset int) ([]models.ListingPost, error)
	GetPublic(ctx context.Context, listingID string) (models.ListingPost, error)
	ListByAuthor(ctx context.Context, authorID, status string, limit, offset int) ([]models.ListingPost, error)
	ListAll(ctx context.Context, status, postType string, limit, offset int) ([]models.ListingPost, error)
}

type ListingPolicy struct {
	PostingFee int64
	Lifetime   time.Duration
}

type ListingService struct {
	txRunner     db.TxRunner
	users        UserStore
	listings     ListingStore
	transactions TransactionStore
	audit        AuditStore
	balances     BalanceCache
	files        MediaStore
	policy       ListingPolicy
	now          func() time.Time
}

func NewListingService(txRunner db.TxRunner, users UserStore, listings ListingStore, transactions TransactionStore, audit AuditStore, balances BalanceCache, files MediaStore, policy ListingPolicy) *ListingService {
	return &ListingService{
		txRunner:     txRunner,
		users:        users,
		listings:     listings,
		transactions: transactions,
		audit:        audit,
		balances:     balances,
		files:        files,
		policy:       policy,
		now:          time.Now,
	}
}

func (s *ListingService) Fee() int64 {
	return s.policy.PostingFee
}

// validateDraft checks the common fields and the variant and returns the
// encoded details. Nothing is uploaded or written here.
func validateDraft(draft listing.Draft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidListing, err)
	}
	details, err := listing.EncodeDetails(draft.Details)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidListing, err)
	}
	return string(details), nil
}

// uploadImages moves inline images into the media store. Callers run it only
// after every precondition they can check without a lock has passed.
func (s *ListingService) uploadImages(ctx context.Context, images []string) ([]string, error) {
	refs := make([]string, 0, len(images))
	for _, image := range images {
		ref, err := storeAttachment(ctx, s.files, image, "listings")
		if err != nil {
			return nil, err
		}
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// checkAuthor is the unlocked version of the checks Submit repeats under
// FOR UPDATE, so a submission that is bound to fail uploads nothing.
func (s *ListingService) checkAuthor(author models.User, err error) (models.User, error) {
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return models.User{}, ErrForbidden
		}
		return models.User{}, err
	}
	if err := requireActive(author); err != nil {
		return models.User{}, err
	}
	if author.WalletBalance < s.policy.PostingFee {
		return models.User{}, ErrInsufficientFunds
	}
	return author, nil
}

// Submit charges the posting fee and creates the pending post atomically.
// When the wallet cannot cover the fee nothing is written.
func (s *ListingService) Submit(ctx context.Context, actor Actor, draft listing.Draft) (models.ListingPost, error) {
	details, err := validateDraft(draft)
	if err != nil {
		return models.ListingPost{}, err
	}
	if _, err := s.checkAuthor(s.users.GetByID(ctx, actor.UserID)); err != nil {
		return models.ListingPost{}, err
	}
	if draft.Images, err = s.uploadImages(ctx, draft.Images); err != nil {
		return models.ListingPost{}, err
	}
	fee := s.policy.PostingFee
	post := models.ListingPost{
		ID:           uuid.NewString(),
		AuthorID:     actor.UserID,
		PostType:     string(draft.PostType),
		Title:        draft.Title,
		Description:  draft.Description,
		Price:        draft.Price,
		Images:       draft.Images,
		ContactPhone: draft.ContactPhone,
		ContactEmail: draft.ContactEmail,
		Details:      json.RawMessage(details),
		Status:       string(approval.Pending),
		CreatedAt:    s.now().UTC(),
	}
	post.UpdatedAt = post.CreatedAt

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		author, err := s.checkAuthor(s.users.GetForUpdate(ctx, tx, actor.UserID))
		if err != nil {
			return err
		}
		// A zero fee means free posting: no ledger row, since fee rows must be negative.
		var feeTxID *string
		if fee > 0 {
			id := uuid.NewString()
			feeTxID = &id
			if err := s.transactions.Create(ctx, tx, store.TransactionInput{
				ID:          id,
				UserID:      author.ID,
				Type:        models.TransactionFee,
				Status:      models.TransactionCompleted,
				Amount:      -fee,
				Description: "Listing fee: " + post.Title,
				ReferenceID: &post.ID,
			}); err != nil {
				return err
			}
		}
		if err := s.listings.Create(ctx, tx, store.ListingInput{
			ID:               post.ID,
			AuthorID:         post.AuthorID,
			PostType:         post.PostType,
			Title:            post.Title,
			Description:      post.Description,
			Price:            post.Price,
			Images:           post.Images,
			ContactPhone:     post.ContactPhone,
			ContactEmail:     post.ContactEmail,
			Details:          details,
			FeeTransactionID: feeTxID,
		}); err != nil {
			return err
		}
		auditData := map[string]string{
			"post_type": post.PostType,
			"fee":       money.FormatMinor(fee),
		}
		if feeTxID != nil {
			if err := s.users.UpdateBalance(ctx, tx, author.ID, author.WalletBalance-fee); err != nil {
				return err
			}
			auditData["transaction_id"] = *feeTxID
		}
		post.FeeTransactionID = feeTxID
		data, _ := json.Marshal(auditData)
		return s.audit.Log(ctx, tx, actor.UserID, "submit_listing", "listing", post.ID, string(data))
	})
	if err != nil {
		return models.ListingPost{}, err
	}
	if post.FeeTransactionID != nil {
		invalidateBalance(ctx, s.balances, actor.UserID)
	}
	return post, nil
}

func (s *ListingService) Approve(ctx context.Context, actor Actor, listingID string, featured bool, adminNotes string) (models.ListingPost, error) {
	if !actor.IsAdmin() {
		return models.ListingPost{}, ErrForbidden
	}
	var approved models.ListingPost
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		post, err := s.listings.GetForUpdate(ctx, tx, listingID)
		if err != nil {
			return notFound(err)
		}
		if err := approval.Transition(approval.Status(post.Status), approval.Approved); err != nil {
			return pendingConflict(err, ErrListingNotPending)
		}
		notes := optional(adminNotes)
		approvedAt := s.now().UTC()
		expiresAt := approvedAt.Add(s.policy.Lifetime)
		changed, err := s.listings.Approve(ctx, tx, post.ID, featured, notes, actor.UserID, expiresAt)
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrListingNotPending
		}
		data, _ := json.Marshal(map[string]any{"featured": featured})
		if err := s.audit.Log(ctx, tx, actor.UserID, "approve_listing", "listing", post.ID, string(data)); err != nil {
			return err
		}
		approved = post
		approved.Status = string(approval.Approved)
		approved.Featured = featured
		approved.AdminNotes = notes
		approved.ApprovedBy = &actor.UserID
		approved.ApprovedAt = &approvedAt
		approved.ExpiresAt = &expiresAt
		return nil
	})
	if err != nil {
		return models.ListingPost{}, err
	}
	return approved, nil
}

// Reject is terminal and keeps the posting fee.
func (s *ListingService) Reject(ctx context.Context, actor Actor, listingID, reason string) (models.ListingPost, error) {
	if !actor.IsAdmin() {
		return models.ListingPost{}, ErrForbidden
	}
	notes := optional(reason)
	if notes == nil {
		return models.ListingPost{}, ErrReasonRequired
	}
	var rejected models.ListingPost
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		post, err := s.listings.GetForUpdate(ctx, tx, listingID)
		if err != nil {
			return notFound(err)
		}
		if err := approval.Transition(approval.Status(post.Status), approval.Rejected); err != nil {
			return pendingConflict(err, ErrListingNotPending)
		}
		changed, err := s.listings.Reject(ctx, tx, post.ID, *notes, notes)
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrListingNotPending
		}
		data, _ := json.Marshal(map[string]string{"reason": *notes})
		if err := s.audit.Log(ctx, tx, actor.UserID, "reject_listing", "listing", post.ID, string(data)); err != nil {
			return err
		}
		rejected = post
		rejected.Status = string(approval.Rejected)
		rejected.RejectionReason = notes
		rejected.AdminNotes = notes
		return nil
	})
	if err != nil {
		return models.ListingPost{}, err
	}
	return rejected, nil
}

// Update lets the author rewrite a post while it waits for review.
func (s *ListingService) Update(ctx context.Context, actor Actor, listingID string, draft listing.Draft) (models.ListingPost, error) {
	details, err := validateDraft(draft)
	if err != nil {
		return models.ListingPost{}, err
	}
	current, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.ListingPost{}, notFound(err)
	}
	if err := checkEditable(current, actor); err != nil {
		return models.ListingPost{}, err
	}
	if draft.Images, err = s.uploadImages(ctx, draft.Images); err != nil {
		return models.ListingPost{}, err
	}
	var updated models.ListingPost
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		post, err := s.editable(ctx, tx, actor, listingID)
		if err != nil {
			return err
		}
		if post.PostType != string(draft.PostType) {
			return fmt.Errorf("%w: post_type cannot change", ErrInvalidListing)
		}
		changed, err := s.listings.UpdatePending(ctx, tx, store.ListingInput{
			ID:           post.ID,
			AuthorID:     actor.UserID,
			PostType:     post.PostType,
			Title:        draft.Title,
			Description:  draft.Description,
			Price:        draft.Price,
			Images:       draft.Images,
			ContactPhone: draft.ContactPhone,
			ContactEmail: draft.ContactEmail,
			Details:      details,
		})
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrListingNotPending
		}
		if err := s.audit.Log(ctx, tx, actor.UserID, "update_listing", "listing", post.ID, ""); err != nil {
			return err
		}
		updated = post
		updated.Title = draft.Title
		updated.Description = draft.Description
		updated.Price = draft.Price
		updated.Images = draft.Images
		updated.ContactPhone = draft.ContactPhone
		updated.ContactEmail = draft.ContactEmail
		updated.Details = json.RawMessage(details)
		updated.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return models.ListingPost{}, err
	}
	return updated, nil
}

// Delete withdraws a pending post. The fee is not refunded.
func (s *ListingService) Delete(ctx context.Context, actor Actor, listingID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		post, err := s.editable(ctx, tx, actor, listingID)
		if err != nil {
			return err
		}
		changed, err := s.listings.DeletePending(ctx, tx, post.ID, actor.UserID)
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrListingNotPending
		}
		return s.audit.Log(ctx, tx, actor.UserID, "delete_listing", "listing", post.ID, "")
	})
}

func (s *ListingService) editable(ctx context.Context, tx store.Getter, actor Actor, listingID string) (models.ListingPost, error) {
	post, err := s.listings.GetForUpdate(ctx, tx, listingID)
	if err != nil {
		return models.ListingPost{}, notFound(err)
	}
	if err := checkEditable(post, actor); err != nil {
		return models.ListingPost{}, err
	}
	return post, nil
}

func checkEditable(post models.ListingPost, actor Actor) error {
	if post.AuthorID != actor.UserID {
		return ErrForbidden
	}
	if post.Status != string(approval.Pending) {
		return ErrListingNotPending
	}
	return nil
}

type ListingFilter struct {
	PostType string
	City     string
	Featured *bool
	MinPrice int64
	MaxPrice int64
}

func (s *ListingService) ListPublic(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.ListingPost, error) {
	if filter.PostType != "" {
		if _, err := listing.ParseType(filter.PostType); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidListing, err)
		}
	}
	return s.listings.ListPublic(ctx, store.PublicFilter{
		PostType: filter.PostType,
		City:     strings.TrimSpace(filter.City),
		Featured: filter.Featured,
		MinPrice: filter.MinPrice,
		MaxPrice: filter.MaxPrice,
	}, limit, offset)
}

func (s *ListingService) GetPublic(ctx context.Context, listingID string) (models.ListingPost, error) {
	post, err := s.listings.GetPublic(ctx, listingID)
	if err != nil {
		return models.ListingPost{}, notFound(err)
	}
	return post, nil
}

// Get returns any post to its author or an admin; everyone else only sees
// what the public listing would show.
func (s *ListingService) Get(ctx context.Context, actor Actor, listingID string) (models.ListingPost, error) {
	if actor.UserID != "" {
		post, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return models.ListingPost{}, notFound(err)
		}
		if actor.IsAdmin() || post.AuthorID == actor.UserID {
			return post, nil
		}
	}
	return s.GetPublic(ctx, listingID)
}

func (s *ListingService) ListMine(ctx context.Context, actor Actor, status string, limit, offset int) ([]models.ListingPost, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	return s.listings.ListByAuthor(ctx, actor.UserID, status, limit, offset)
}

func (s *ListingService) ListAll(ctx context.Context, actor Actor, status, postType string, limit, offset int) ([]models.ListingPost, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	if postType != "" {
		if _, err := listing.ParseType(postType); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidListing, err)
		}
	}
	return s.listings.ListAll(ctx, status, postType, limit, offset)
}
