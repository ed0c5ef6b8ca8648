package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"realestate/internal/models"
	"realestate/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	TransferBill string          `json:"transfer_bill"`
	Description  string          `json:"description"`
}

type reviewRequest struct {
	AdminNotes string `json:"admin_notes"`
	Reason     string `json:"reason"`
}

// note prefers admin_notes and falls back to reason.
func (r reviewRequest) note() string {
	if r.AdminNotes != "" {
		return r.AdminNotes
	}
	return r.Reason
}

type depositView struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Amount        string     `json:"amount"`
	Method        string     `json:"method"`
	TransferBill  string     `json:"transfer_bill"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	AdminNotes    *string    `json:"admin_notes,omitempty"`
	ReviewedBy    *string    `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newDepositView(row models.DepositRequest) depositView {
	return depositView{
		ID:            row.ID,
		UserID:        row.UserID,
		Amount:        formatMoney(row.Amount),
		Method:        row.Method,
		TransferBill:  row.TransferBill,
		Description:   row.Description,
		Status:        row.Status,
		AdminNotes:    row.AdminNotes,
		ReviewedBy:    row.ReviewedBy,
		ReviewedAt:    row.ReviewedAt,
		TransactionID: row.TransactionID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func depositViews(rows []models.DepositRequest) []depositView {
	views := make([]depositView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newDepositView(row))
	}
	return views
}

func (h *Handler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	deposit, err := h.deposits.Submit(r.Context(), actor, services.DepositSubmission{
		AmountMinor:  amountMinor,
		Method:       req.Method,
		TransferBill: req.TransferBill,
		Description:  req.Description,
	})
	if err != nil {
		respondServiceError(w, err, "deposit_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     deposit.ID,
		"status": deposit.Status,
		"amount": formatMoney(deposit.Amount),
	})
}

func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req reviewRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	transaction, err := h.deposits.Approve(r.Context(), actor, chi.URLParam(r, "id"), req.note())
	if err != nil {
		respondServiceError(w, err, "deposit_approval_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":         "approved",
		"transaction_id": transaction.ID,
		"amount":         formatMoney(transaction.Amount),
	})
}

func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
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
	deposit, err := h.deposits.Reject(r.Context(), actor, chi.URLParam(r, "id"), req.note())
	if err != nil {
		respondServiceError(w, err, "deposit_rejection_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     deposit.ID,
		"status": deposit.Status,
	})
}

func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	deposit, err := h.deposits.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "unable_to_load_deposit")
		return
	}
	respondJSON(w, http.StatusOK, newDepositView(deposit))
}

func (h *Handler) ListMyDeposits(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.deposits.ListMine(r.Context(), actor, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_deposits")
		return
	}
	respondJSON(w, http.StatusOK, depositViews(rows))
}

func (h *Handler) AdminListDeposits(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.deposits.ListAll(r.Context(), actor, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_deposits")
		return
	}
	respondJSON(w, http.StatusOK, depositViews(rows))
}
