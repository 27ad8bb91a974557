package handlers

import (
	"context"
	"net/http"

	"finagg/internal/auth"
	"finagg/internal/config"
	"finagg/internal/middleware"
	"finagg/internal/store"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg          config.Config
	verifier     auth.TokenVerifier
	userService  UserService
	consents     ConsentService
	sessions     SessionService
	consentStore ConsentStore
	accounts     AccountStore
	transactions TransactionStore
	otp          OTPSender
	channels     ChannelAuthorizer
}

func New(cfg config.Config, verifier auth.TokenVerifier, userService UserService, consents ConsentService, sessions SessionService, consentStore ConsentStore, accounts AccountStore, transactions TransactionStore, otp OTPSender, channels ChannelAuthorizer) *Handler {
	return &Handler{
		cfg:          cfg,
		verifier:     verifier,
		userService:  userService,
		consents:     consents,
		sessions:     sessions,
		consentStore: consentStore,
		accounts:     accounts,
		transactions: transactions,
		otp:          otp,
		channels:     channels,
	}
}

type userLookup interface {
	GetByKeycloakID(ctx context.Context, keycloakUserID string) (store.User, error)
}

func (h *Handler) Routes(users userLookup) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/webhooks/setu", h.SetuWebhook)
	router.Post("/webhooks/keycloak", h.KeycloakWebhook)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.verifier, users))
		r.Get("/users/me", h.Me)
		r.Post("/users/pan", h.VerifyPAN)
		r.Post("/consents", h.LinkBank)
		r.Get("/consents/latest", h.LatestConsent)
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}/transactions", h.ListTransactions)
		r.Get("/stats/monthly", h.MonthlyStats)
		r.Get("/stats/modes", h.ModeStats)
		r.Post("/pusher/auth", h.PusherAuth)
		r.Post("/otp/send", h.SendOTP)
		r.Post("/otp/verify", h.VerifyOTP)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
