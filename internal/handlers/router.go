package handlers

import (
	"net/http"
	"time"

	"realestate/internal/config"
	"realestate/internal/db"
	"realestate/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	tickets      TicketStore
	settings     SettingsStore
	audit        AuditStore
	deposits     DepositService
	listings     ListingService
	messages     MessageService
	wallet       WalletService
	files        MediaStore
	loginLimiter *middleware.RateLimiter
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, tickets TicketStore, settings SettingsStore, audit AuditStore, deposits DepositService, listings ListingService, messages MessageService, wallet WalletService, files MediaStore) *Handler {
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		tickets:      tickets,
		settings:     settings,
		audit:        audit,
		deposits:     deposits,
		listings:     listings,
		messages:     messages,
		wallet:       wallet,
		files:        files,
		loginLimiter: middleware.NewRateLimiter(10, time.Minute),
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret)
	optional := middleware.OptionalAuth(h.cfg.JWTSecret)
	admin := middleware.RequireAdmin(h.users)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.With(middleware.RateLimit(h.loginLimiter)).Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})

	router.Route("/deposits", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.SubmitDeposit)
		r.Get("/", h.ListMyDeposits)
		r.Get("/{id}", h.GetDeposit)
		r.Get("/{id}/messages", h.ListDepositMessages)
		r.With(admin).Put("/{id}/approve", h.ApproveDeposit)
		r.With(admin).Put("/{id}/reject", h.RejectDeposit)
	})

	router.Route("/wallet", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/balance", h.GetBalance)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/self-check", h.SelfCheck)
	})

	router.Route("/listings", func(r chi.Router) {
		r.With(optional).Get("/", h.ListPublicListings)
		r.With(optional).Get("/{id}", h.GetListing)
		r.With(authenticated).Post("/", h.SubmitListing)
		r.With(authenticated).Put("/{id}", h.UpdateListing)
		r.With(authenticated).Delete("/{id}", h.DeleteListing)
		r.With(authenticated, admin).Put("/{id}/approve", h.ApproveListing)
		r.With(authenticated, admin).Put("/{id}/reject", h.RejectListing)
	})
	router.With(authenticated).Get("/me/listings", h.ListMyListings)

	router.Route("/messages", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.PostMessage)
		r.Get("/", h.ListMessages)
		r.Get("/unread-count", h.UnreadCount)
		r.Put("/{id}/read", h.MarkMessageRead)
	})

	router.Route("/tickets", func(r chi.Router) {
		r.With(optional).Post("/", h.CreateTicket)
		r.With(authenticated).Get("/", h.ListMyTickets)
		r.With(authenticated).Get("/{id}/messages", h.ListTicketMessages)
	})

	router.Get("/bank-info", h.GetBankInfo)
	router.With(authenticated).Post("/uploads", h.Upload)
	router.Get("/media/{id}", h.GetMedia)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(admin)
		r.Get("/deposits", h.AdminListDeposits)
		r.Get("/listings", h.AdminListListings)
		r.Get("/users", h.AdminListUsers)
		r.Put("/users/{id}/status", h.AdminSetUserStatus)
		r.Post("/users/{id}/wallet/adjust", h.AdminAdjustWallet)
		r.Get("/tickets", h.AdminListTickets)
		r.Put("/tickets/{id}", h.AdminUpdateTicket)
		r.Put("/bank-info", h.AdminUpdateBankInfo)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reconcile", h.Reconcile)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
