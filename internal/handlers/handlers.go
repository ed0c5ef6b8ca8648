package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"realestate/internal/approval"
	"realestate/internal/listing"
	"realestate/internal/middleware"
	"realestate/internal/money"
	"realestate/internal/services"
	"realestate/internal/validator"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondFieldError(w http.ResponseWriter, code string, field *validator.FieldError) {
	respondJSON(w, http.StatusBadRequest, map[string]string{
		"error":  code,
		"field":  field.Field,
		"reason": field.Reason,
	})
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// pagination reads limit and page (1-based) from the query string.
func pagination(r *http.Request) (int, int) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := parseInt(query.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func actorFrom(r *http.Request) (services.Actor, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: identity.UserID, Role: identity.Role}, true
}

type serviceError struct {
	target error
	status int
	code   string
}

var serviceErrors = []serviceError{
	{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{services.ErrAmountBelowMinimum, http.StatusBadRequest, "amount_below_minimum"},
	{services.ErrAmountAboveMaximum, http.StatusBadRequest, "amount_above_maximum"},
	{services.ErrInvalidMethod, http.StatusBadRequest, "invalid_method"},
	{services.ErrReasonRequired, http.StatusBadRequest, "reason_required"},
	{services.ErrInvalidListing, http.StatusBadRequest, "invalid_listing"},
	{listing.ErrUnknownType, http.StatusBadRequest, "invalid_listing"},
	{listing.ErrInvalid, http.StatusBadRequest, "invalid_listing"},
	{services.ErrInvalidCorrelation, http.StatusBadRequest, "invalid_correlation"},
	{services.ErrInvalidRecipient, http.StatusBadRequest, "invalid_recipient"},
	{services.ErrEmptyMessage, http.StatusBadRequest, "empty_message"},
	{services.ErrMessageTooLong, http.StatusBadRequest, "message_too_long"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{services.ErrInvalidAttachment, http.StatusBadRequest, "invalid_attachment"},
	{services.ErrInvalidTransactionType, http.StatusBadRequest, "invalid_transaction_type"},
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrForbidden, http.StatusForbidden, "forbidden"},
	{services.ErrAccountSuspended, http.StatusForbidden, "account_suspended"},
	{services.ErrNotAddressee, http.StatusForbidden, "not_addressee"},
	{services.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{services.ErrDepositNotPending, http.StatusConflict, "deposit_not_pending"},
	{services.ErrListingNotPending, http.StatusConflict, "listing_not_pending"},
	{approval.ErrNotPending, http.StatusConflict, "not_pending"},
}

// respondServiceError maps workflow errors onto status codes. Anything
// unrecognised is logged and reported as a 500 with the fallback code.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	for _, candidate := range serviceErrors {
		if !errors.Is(err, candidate.target) {
			continue
		}
		var field *validator.FieldError
		if candidate.status == http.StatusBadRequest && errors.As(err, &field) {
			respondFieldError(w, candidate.code, field)
			return
		}
		respondError(w, candidate.status, candidate.code)
		return
	}
	log.Printf("%s: %v", fallback, err)
	respondError(w, http.StatusInternalServerError, fallback)
}

func formatMoney(value int64) string {
	return money.FormatMinor(value)
}
