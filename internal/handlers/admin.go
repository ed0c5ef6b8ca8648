package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"realestate/internal/models"
	"realestate/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var userStatuses = []string{models.UserStatusActive, models.UserStatusSuspended, models.UserStatusPending}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_users")
		return
	}
	views := make([]userView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newUserView(row))
	}
	respondJSON(w, http.StatusOK, views)
}

type userStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) AdminSetUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req userStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validator.OneOf("status", req.Status, userStatuses...); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	userID := chi.URLParam(r, "id")
	if userID == actor.UserID && req.Status != models.UserStatusActive {
		respondError(w, http.StatusBadRequest, "cannot_change_own_status")
		return
	}
	var updated int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		var err error
		updated, err = h.users.UpdateStatus(r.Context(), tx, userID, req.Status)
		if err != nil || updated == 0 {
			return err
		}
		data, _ := json.Marshal(map[string]string{"status": req.Status})
		return h.audit.Log(r.Context(), tx, actor.UserID, "user_status", "user", userID, string(data))
	})
	if err != nil {
		log.Printf("set status for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "status_update_failed")
		return
	}
	if updated == 0 {
		respondError(w, http.StatusNotFound, "not_found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": userID, "status": req.Status})
}

type adjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (h *Handler) AdminAdjustWallet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	amount, err := parseSignedAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	transaction, err := h.wallet.Adjust(r.Context(), actor, chi.URLParam(r, "id"), amount, strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(w, err, "adjustment_failed")
		return
	}
	respondJSON(w, http.StatusCreated, newTransactionView(transaction))
}

func (h *Handler) GetBankInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.settings.GetBankInfo(r.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable_to_load_bank_info")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) AdminUpdateBankInfo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var info models.BankInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	info.BankName = strings.TrimSpace(info.BankName)
	info.AccountNumber = strings.TrimSpace(info.AccountNumber)
	info.AccountHolder = strings.TrimSpace(info.AccountHolder)
	if err := validator.First(
		validator.Required("bank_name", info.BankName),
		validator.Required("account_number", info.AccountNumber),
		validator.Required("account_holder", info.AccountHolder),
	); err != nil {
		var field *validator.FieldError
		if errors.As(err, &field) {
			respondFieldError(w, "invalid_bank_info", field)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_bank_info")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.settings.UpdateBankInfo(r.Context(), tx, info); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"bank_name":      info.BankName,
			"account_number": info.AccountNumber,
		})
		return h.audit.Log(r.Context(), tx, actor.UserID, "bank_info_update", "settings", "bank_info", string(data))
	})
	if err != nil {
		log.Printf("update bank info: %v", err)
		respondError(w, http.StatusInternalServerError, "bank_info_update_failed")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := h.audit.List(r.Context(), r.URL.Query().Get("entity_type"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_audit_logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.wallet.Reconcile(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err, "unable_to_reconcile_balances")
		return
	}
	normalized := make([]balanceCheckView, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, newBalanceCheckView(row))
	}
	respondJSON(w, http.StatusOK, normalized)
}
