package store

import (
	"context"
	"time"

	"realestate/internal/models"

	"github.com/lib/pq"
)

type ListingStore struct {
	db DB
}

func NewListingStore(db DB) *ListingStore {
	return &ListingStore{db: db}
}

const listingColumns = `id, author_id, post_type, title, description, price, images, contact_phone, contact_email, details, status, featured, admin_notes, rejection_reason, fee_transaction_id, approved_by, approved_at, expires_at, views, created_at, updated_at`

// publicVisible is the single definition of what anonymous visitors may see.
const publicVisible = `status = 'approved' AND deleted_at IS NULL AND (expires_at IS NULL OR expires_at > NOW())`

type ListingInput struct {
	ID               string
	AuthorID         string
	PostType         string
	Title            string
	Description      string
	Price            int64
	Images           []string
	ContactPhone     string
	ContactEmail     string
	Details          string
	FeeTransactionID *string
}

type PublicFilter struct {
	PostType string
	City     string
	Featured *bool
	MinPrice int64
	MaxPrice int64
}

func (s *ListingStore) Create(ctx context.Context, tx Execer, input ListingInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO listing_posts (id, author_id, post_type, title, description, price, images, contact_phone, contact_email, details, status, fee_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
	`, input.ID, input.AuthorID, input.PostType, input.Title, input.Description, input.Price, pq.Array(input.Images),
		input.ContactPhone, input.ContactEmail, input.Details, input.FeeTransactionID)
	return err
}

func (s *ListingStore) GetByID(ctx context.Context, listingID string) (models.ListingPost, error) {
	var row models.ListingPost
	err := s.db.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM listing_posts WHERE id = $1 AND deleted_at IS NULL`, listingID)
	return row, err
}

func (s *ListingStore) GetForUpdate(ctx context.Context, tx Getter, listingID string) (models.ListingPost, error) {
	var row models.ListingPost
	err := tx.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM listing_posts WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, listingID)
	return row, err
}

func (s *ListingStore) Approve(ctx context.Context, tx Execer, listingID string, featured bool, adminNotes *string, approvedBy string, expiresAt time.Time) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE listing_posts
		SET status = 'approved', featured = $1, admin_notes = $2, approved_by = $3, approved_at = NOW(), expires_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'pending' AND deleted_at IS NULL
	`, featured, adminNotes, approvedBy, expiresAt, listingID)
}

func (s *ListingStore) Reject(ctx context.Context, tx Execer, listingID, reason string, adminNotes *string) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE listing_posts
		SET status = 'rejected', rejection_reason = $1, admin_notes = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'pending' AND deleted_at IS NULL
	`, reason, adminNotes, listingID)
}

// UpdatePending rewrites the member-editable fields. The post type is fixed
// at submission and the row must still be pending and owned by the author.
func (s *ListingStore) UpdatePending(ctx context.Context, tx Execer, input ListingInput) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE listing_posts
		SET title = $1, description = $2, price = $3, images = $4, contact_phone = $5, contact_email = $6, details = $7, updated_at = NOW()
		WHERE id = $8 AND author_id = $9 AND post_type = $10 AND status = 'pending' AND deleted_at IS NULL
	`, input.Title, input.Description, input.Price, pq.Array(input.Images), input.ContactPhone, input.ContactEmail, input.Details,
		input.ID, input.AuthorID, input.PostType)
}

// DeletePending hides a pending post from every query; the row is kept for
// the audit trail.
func (s *ListingStore) DeletePending(ctx context.Context, tx Execer, listingID, authorID string) (int64, error) {
	return execAffected(ctx, tx, `
		UPDATE listing_posts
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND author_id = $2 AND status = 'pending' AND deleted_at IS NULL
	`, listingID, authorID)
}

func (s *ListingStore) ListPublic(ctx context.Context, filter PublicFilter, limit, offset int) ([]models.ListingPost, error) {
	rows := []models.ListingPost{}
	query := `SELECT ` + listingColumns + ` FROM listing_posts WHERE ` + publicVisible
	args := []any{}
	if filter.PostType != "" {
		args = append(args, filter.PostType)
		query += " AND post_type = $" + itoa(len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += " AND details->>'city' = $" + itoa(len(args))
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		query += " AND featured = $" + itoa(len(args))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		query += " AND price >= $" + itoa(len(args))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		query += " AND price <= $" + itoa(len(args))
	}
	query += " ORDER BY featured DESC, approved_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPublic returns a visible post and counts the view in the same statement.
func (s *ListingStore) GetPublic(ctx context.Context, listingID string) (models.ListingPost, error) {
	var row models.ListingPost
	err := s.db.GetContext(ctx, &row, `
		UPDATE listing_posts
		SET views = views + 1
		WHERE id = $1 AND `+publicVisible+`
		RETURNING `+listingColumns, listingID)
	return row, err
}

func (s *ListingStore) ListByAuthor(ctx context.Context, authorID, status string, limit, offset int) ([]models.ListingPost, error) {
	rows := []models.ListingPost{}
	query := `SELECT ` + listingColumns + ` FROM listing_posts WHERE author_id = $1 AND deleted_at IS NULL`
	args := []any{authorID}
	if status != "" {
		args = append(args, status)
		query += " AND status = $2"
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ListingStore) ListAll(ctx context.Context, status, postType string, limit, offset int) ([]models.ListingPost, error) {
	rows := []models.ListingPost{}
	query := `SELECT ` + listingColumns + ` FROM listing_posts WHERE deleted_at IS NULL`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += " AND status = $" + itoa(len(args))
	}
	if postType != "" {
		args = append(args, postType)
		query += " AND post_type = $" + itoa(len(args))
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
