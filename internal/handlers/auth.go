package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"realestate/internal/auth"
	"realestate/internal/db"
	"realestate/internal/middleware"
	"realestate/internal/models"
	"realestate/internal/store"
	"realestate/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type userView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Balance   string     `json:"wallet_balance"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newUserView(user models.User) userView {
	return userView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		Status:    user.Status,
		Balance:   formatMoney(user.WalletBalance),
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.ValidateUsername(req.Username); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_username")
		return
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_password")
		return
	}
	if req.Phone != "" {
		if err := validator.ValidatePhone(req.Phone); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_phone")
			return
		}
		req.Phone = validator.NormalizePhone(req.Phone)
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "registration_failed")
		return
	}
	userID := uuid.NewString()
	var role string
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		hasAdmin, err := h.users.HasAnyAdmin(r.Context(), tx)
		if err != nil {
			return err
		}
		role = auth.RoleMember
		if !hasAdmin {
			role = auth.RoleAdmin
		}
		if err := h.users.Create(r.Context(), tx, store.NewUser{
			ID:           userID,
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: passwordHash,
			FullName:     strings.TrimSpace(req.FullName),
			Phone:        req.Phone,
			Role:         role,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"role":       role,
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
		return h.audit.Log(r.Context(), tx, userID, "register", "user", userID, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "username_or_email_exists")
			return
		}
		log.Printf("register: %v", err)
		respondError(w, http.StatusInternalServerError, "registration_failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, userID, role, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token_generation_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"token":   token,
		"user_id": userID,
		"role":    role,
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}
	if login == "" {
		login = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if login == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing_credentials")
		return
	}
	user, err := h.users.GetByLogin(r.Context(), login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if user.Status == models.UserStatusSuspended {
		respondError(w, http.StatusForbidden, "account_suspended")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Role, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token_generation_failed")
		return
	}
	if err := h.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		log.Printf("touch last login for %s: %v", user.ID, err)
	}
	data, _ := json.Marshal(map[string]string{
		"ip":         r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.audit.Log(r.Context(), tx, user.ID, "login", "user", user.ID, string(data))
	}); err != nil {
		log.Printf("audit login for %s: %v", user.ID, err)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserView(user),
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable_to_load_user")
		return
	}
	respondJSON(w, http.StatusOK, newUserView(user))
}
