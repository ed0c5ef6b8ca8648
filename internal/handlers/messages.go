package handlers

import (
	"encoding/json"
	"net/http"

	"realestate/internal/models"
	"realestate/internal/services"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	TicketID  string `json:"ticket_id"`
	DepositID string `json:"deposit_id"`
	ToUserID  string `json:"to_user_id"`
	Message   string `json:"message"`
}

func messagesOrEmpty(rows []models.Message) []models.Message {
	if rows == nil {
		return []models.Message{}
	}
	return rows
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	message, err := h.messages.Post(r.Context(), actor, services.MessagePost{
		TicketID:  req.TicketID,
		DepositID: req.DepositID,
		ToUserID:  req.ToUserID,
		Message:   req.Message,
	})
	if err != nil {
		respondServiceError(w, err, "message_failed")
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	messageID := chi.URLParam(r, "id")
	if err := h.messages.MarkRead(r.Context(), actor, messageID); err != nil {
		respondServiceError(w, err, "unable_to_mark_read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": messageID, "read": true})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	unread, err := parseBool(r.URL.Query().Get("unread"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_unread")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.messages.ListMine(r.Context(), actor, unread != nil && *unread, limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable_to_load_messages")
		return
	}
	respondJSON(w, http.StatusOK, messagesOrEmpty(rows))
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	count, err := h.messages.UnreadCount(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err, "unable_to_count_messages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) ListDepositMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.messages.ListByDeposit(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "unable_to_load_messages")
		return
	}
	respondJSON(w, http.StatusOK, messagesOrEmpty(rows))
}

func (h *Handler) ListTicketMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.messages.ListByTicket(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "unable_to_load_messages")
		return
	}
	respondJSON(w, http.StatusOK, messagesOrEmpty(rows))
}
