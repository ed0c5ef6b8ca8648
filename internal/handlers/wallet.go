package handlers

import (
	"net/http"
	"time"

	"realestate/internal/models"
)

type transactionView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	AdminNotes  *string   `json:"admin_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionView(row models.Transaction) transactionView {
	return transactionView{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        row.Type,
		Status:      row.Status,
		Amount:      formatMoney(row.Amount),
		Description: row.Description,
		ReferenceID: row.ReferenceID,
		AdminNotes:  row.AdminNotes,
		CreatedAt:   row.CreatedAt,
	}
}

type balanceCheckView struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	StoredBalance string `json:"stored_balance"`
	LedgerSum     string `json:"ledger_sum"`
	Difference    string `json:"difference"`
	Consistent    bool   `json:"consistent"`
}

func newBalanceCheckView(row models.BalanceCheck) balanceCheckView {
	return balanceCheckView{
		UserID:        row.UserID,
		Username:      row.Username,
		StoredBalance: formatMoney(row.StoredBalance),
		LedgerSum:     formatMoney(row.LedgerSum),
		Difference:    formatMoney(row.Difference),
		Consistent:    row.Difference == 0,
	}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.wallet.Balance(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"balance": formatMoney(balance)})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.wallet.Transactions(r.Context(), actor, r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_transactions")
		return
	}
	views := make([]transactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newTransactionView(row))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	check, err := h.wallet.SelfCheck(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err, "unable_to_check_balance")
		return
	}
	respondJSON(w, http.StatusOK, newBalanceCheckView(check))
}
