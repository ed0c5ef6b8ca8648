package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"realestate/internal/models"
	"realestate/internal/store"
	"realestate/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ticketPriorities = []string{"low", "medium", "high", "urgent"}

var ticketStatuses = []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed}

type ticketRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (req *ticketRequest) normalize() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := validator.First(
		validator.Required("name", req.Name),
		validator.MaxLength("name", req.Name, 100),
		validator.Required("subject", req.Subject),
		validator.MaxLength("subject", req.Subject, 200),
		validator.Required("message", req.Message),
		validator.MaxLength("message", req.Message, 5000),
	); err != nil {
		return err
	}
	if req.Email != "" {
		if err := validator.ValidateEmail(req.Email); err != nil {
			return &validator.FieldError{Field: "email", Reason: err.Error()}
		}
	}
	if req.Phone != "" {
		if err := validator.ValidatePhone(req.Phone); err != nil {
			return &validator.FieldError{Field: "phone", Reason: err.Error()}
		}
		req.Phone = validator.NormalizePhone(req.Phone)
	}
	if req.Email == "" && req.Phone == "" {
		return &validator.FieldError{Field: "email", Reason: "email or phone is required"}
	}
	return nil
}

// CreateTicket accepts anonymous contact requests; a signed-in caller is
// recorded as the ticket owner.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := req.normalize(); err != nil {
		var field *validator.FieldError
		if errors.As(err, &field) {
			respondFieldError(w, "invalid_ticket", field)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_ticket")
		return
	}
	var owner *string
	actorID := ""
	if actor, ok := actorFrom(r); ok {
		actorID = actor.UserID
		owner = &actorID
	}
	ticketID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.tickets.Create(r.Context(), tx, store.TicketInput{
			ID:      ticketID,
			UserID:  owner,
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Subject: req.Subject,
			Message: req.Message,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"subject": req.Subject})
		return h.audit.Log(r.Context(), tx, actorID, "ticket_create", "ticket", ticketID, string(data))
	})
	if err != nil {
		log.Printf("create ticket: %v", err)
		respondError(w, http.StatusInternalServerError, "ticket_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     ticketID,
		"status": models.TicketOpen,
	})
}

func (h *Handler) ListMyTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := pagination(r)
	rows, err := h.tickets.ListByUser(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_tickets")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" {
		if err := validator.OneOf("status", status, ticketStatuses...); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	limit, offset := pagination(r)
	rows, err := h.tickets.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_tickets")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type ticketUpdateRequest struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	AdminNotes *string `json:"admin_notes"`
	AssignedTo *string `json:"assigned_to"`
}

func (h *Handler) AdminUpdateTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req ticketUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if req.Status != nil {
		if err := validator.OneOf("status", *req.Status, ticketStatuses...); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	if req.Priority != nil {
		if err := validator.OneOf("priority", *req.Priority, ticketPriorities...); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_priority")
			return
		}
	}
	if req.AssignedTo != nil {
		if _, err := h.users.GetByID(r.Context(), *req.AssignedTo); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(w, http.StatusBadRequest, "invalid_assignee")
				return
			}
			respondError(w, http.StatusInternalServerError, "ticket_update_failed")
			return
		}
	}
	ticketID := chi.URLParam(r, "id")
	var updated int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		var err error
		updated, err = h.tickets.Update(r.Context(), tx, ticketID, store.TicketUpdate{
			Status:     req.Status,
			Priority:   req.Priority,
			AdminNotes: req.AdminNotes,
			AssignedTo: req.AssignedTo,
		})
		if err != nil || updated == 0 {
			return err
		}
		data, _ := json.Marshal(req)
		return h.audit.Log(r.Context(), tx, actor.UserID, "ticket_update", "ticket", ticketID, string(data))
	})
	if err != nil {
		log.Printf("update ticket %s: %v", ticketID, err)
		respondError(w, http.StatusInternalServerError, "ticket_update_failed")
		return
	}
	if updated == 0 {
		respondError(w, http.StatusNotFound, "not_found")
		return
	}
	ticket, err := h.tickets.GetByID(r.Context(), ticketID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ticket_update_failed")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}
