package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/ledger"
	"github.com/simplebank/simplebank/internal/metrics"
	"github.com/simplebank/simplebank/internal/middleware"
)

// NewRouter wires the HTTP front-end. Handlers only ever call the ledger
// engine's public operations.
func NewRouter(svc *ledger.Service, tm *auth.TokenManager) http.Handler {
	h := &handlers{svc: svc, tm: tm}
	authn := middleware.NewAuthMiddleware(tm)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(authn.Auth)

			r.Get("/account", h.account)
			r.Get("/account/balance", h.balance)
			r.Post("/account/deposit", h.deposit)
			r.Post("/account/withdraw", h.withdraw)
			r.Post("/account/transfer", h.transfer)
			r.Get("/transactions", h.transactions)
			r.Delete("/account", h.deleteAccount)
		})
	})

	return r
}
