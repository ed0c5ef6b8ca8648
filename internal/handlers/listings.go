package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"realestate/internal/listing"
	"realestate/internal/models"
	"realestate/internal/services"

	"github.com/go-chi/chi/v5"
)

const maxListingBody = 8 << 20

type listingView struct {
	ID              string          `json:"id"`
	AuthorID        string          `json:"author_id"`
	PostType        string          `json:"post_type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           string          `json:"price"`
	Images          []string        `json:"images"`
	ContactPhone    string          `json:"contact_phone"`
	ContactEmail    string          `json:"contact_email"`
	Details         json.RawMessage `json:"details"`
	Status          string          `json:"status"`
	Featured        bool            `json:"featured"`
	AdminNotes      *string         `json:"admin_notes,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	Views           int64           `json:"views"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// newListingView hides moderation fields unless the caller may see them.
func newListingView(row models.ListingPost, private bool) listingView {
	images := []string(row.Images)
	if images == nil {
		images = []string{}
	}
	details := row.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	view := listingView{
		ID:           row.ID,
		AuthorID:     row.AuthorID,
		PostType:     row.PostType,
		Title:        row.Title,
		Description:  row.Description,
		Price:        formatMoney(row.Price),
		Images:       images,
		ContactPhone: row.ContactPhone,
		ContactEmail: row.ContactEmail,
		Details:      details,
		Status:       row.Status,
		Featured:     row.Featured,
		ApprovedAt:   row.ApprovedAt,
		ExpiresAt:    row.ExpiresAt,
		Views:        row.Views,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if private {
		view.AdminNotes = row.AdminNotes
		view.RejectionReason = row.RejectionReason
	}
	return view
}

func listingViews(rows []models.ListingPost, private bool) []listingView {
	views := make([]listingView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newListingView(row, private))
	}
	return views
}

func readDraft(r *http.Request) (listing.Draft, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxListingBody))
	if err != nil {
		return listing.Draft{}, err
	}
	return listing.DecodeDraft(raw)
}

func (h *Handler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	draft, err := readDraft(r)
	if err != nil {
		respondServiceError(w, err, "invalid_payload")
		return
	}
	post, err := h.listings.Submit(r.Context(), actor, draft)
	if err != nil {
		respondServiceError(w, err, "listing_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     post.ID,
		"status": post.Status,
		"fee":    formatMoney(h.listings.Fee()),
	})
}

func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	draft, err := readDraft(r)
	if err != nil {
		respondServiceError(w, err, "invalid_payload")
		return
	}
	post, err := h.listings.Update(r.Context(), actor, chi.URLParam(r, "id"), draft)
	if err != nil {
		respondServiceError(w, err, "listing_update_failed")
		return
	}
	respondJSON(w, http.StatusOK, newListingView(post, true))
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.listings.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "listing_delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listingApprovalRequest struct {
	Featured   bool   `json:"featured"`
	AdminNotes string `json:"admin_notes"`
}

func (h *Handler) ApproveListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req listingApprovalRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	post, err := h.listings.Approve(r.Context(), actor, chi.URLParam(r, "id"), req.Featured, req.AdminNotes)
	if err != nil {
		respondServiceError(w, err, "listing_approval_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         post.ID,
		"status":     post.Status,
		"featured":   post.Featured,
		"expires_at": post.ExpiresAt,
	})
}

func (h *Handler) RejectListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	post, err := h.listings.Reject(r.Context(), actor, chi.URLParam(r, "id"), req.note())
	if err != nil {
		respondServiceError(w, err, "listing_rejection_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     post.ID,
		"status": post.Status,
	})
}

func (h *Handler) ListPublicListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.ListingFilter{
		PostType: strings.TrimSpace(query.Get("post_type")),
		City:     strings.TrimSpace(query.Get("city")),
	}
	if filter.PostType != "" {
		if _, err := listing.ParseType(filter.PostType); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_post_type")
			return
		}
	}
	featured, err := parseBool(query.Get("featured"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_featured")
		return
	}
	filter.Featured = featured
	if filter.MinPrice, err = parseOptionalAmount(query.Get("min_price")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_min_price")
		return
	}
	if filter.MaxPrice, err = parseOptionalAmount(query.Get("max_price")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_max_price")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.listings.ListPublic(r.Context(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_listings")
		return
	}
	respondJSON(w, http.StatusOK, listingViews(rows, false))
}

// GetListing serves approved posts to everyone. Authors and admins also see
// their pending or rejected posts.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	post, err := h.listings.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "unable_to_load_listing")
		return
	}
	private := actor.IsAdmin() || (actor.UserID != "" && post.AuthorID == actor.UserID)
	respondJSON(w, http.StatusOK, newListingView(post, private))
}

func (h *Handler) ListMyListings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.listings.ListMine(r.Context(), actor, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_listings")
		return
	}
	respondJSON(w, http.StatusOK, listingViews(rows, true))
}

func (h *Handler) AdminListListings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit, offset := pagination(r)
	rows, err := h.listings.ListAll(r.Context(), actor, query.Get("status"), query.Get("post_type"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_listings")
		return
	}
	respondJSON(w, http.StatusOK, listingViews(rows, true))
}
