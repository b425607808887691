package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	User         *UserHandler
	Accounts     *AccountHandler
	References   *ReferenceHandler
	Transactions *TransactionHandler
	Recurrences  *RecurrenceHandler
	Admin        *AdminHandler
	CSRF         *CSRFProtector
	RateLimiter  *ClientRateLimiter
}

// NewRouter builds the API routes. extra middlewares run after the logger and
// before rate limiting, in the order given.
func NewRouter(h Handlers, extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	for _, mw := range extra {
		r.Use(mw)
	}
	if h.RateLimiter != nil {
		r.Use(h.RateLimiter.Middleware)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, http.StatusOK, map[string]string{"message": "MonBudget backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", h.CSRF.GetCSRFToken)
			r.Get("/auth/google/login", h.User.HandleGoogleLogin)
			r.Get("/auth/google/callback", h.User.HandleGoogleCallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.CSRF.Middleware)
			r.Post("/auth/login", h.User.LoginUserHandler)
			r.Post("/auth/register", h.User.RegisterUserHandler)
			r.Post("/auth/refresh", h.User.RefreshTokenHandler)
			r.With(h.User.AuthMiddleware).Post("/auth/logout", h.User.LogoutUserHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.CSRF.Middleware)
			r.Use(h.User.AuthMiddleware)

			r.Get("/user/me", h.User.HandleGetCurrentUser)

			r.Get("/accounts", h.Accounts.HandleListAccounts)
			r.Post("/accounts", h.Accounts.HandleCreateAccount)
			r.Get("/accounts/{id}", h.Accounts.HandleGetAccount)
			r.Delete("/accounts/{id}", h.Accounts.HandleDeleteAccount)

			r.Get("/categories", h.References.HandleListCategories)
			r.Post("/categories", h.References.HandleCreateCategory)
			r.Delete("/categories/{id}", h.References.HandleDeleteCategory)
			r.Get("/sous-categories", h.References.HandleListSubCategories)
			r.Post("/sous-categories", h.References.HandleCreateSubCategory)
			r.Get("/tiers", h.References.HandleListTiers)
			r.Post("/tiers", h.References.HandleCreateTiers)

			r.Get("/transactions", h.Transactions.HandleListTransactions)
			r.Post("/transactions", h.Transactions.HandleCreateTransaction)
			r.Post("/transactions/{id}/recurrence", h.Transactions.HandleConvertToRecurrence)

			r.Route("/recurrences", func(r chi.Router) {
				r.Get("/", h.Recurrences.HandleListRecurrences)
				r.Post("/", h.Recurrences.HandleCreateRecurrence)
				r.Post("/preview", h.Recurrences.HandlePreviewRecurrence)
				r.Get("/{id}", h.Recurrences.HandleGetRecurrence)
				r.Put("/{id}", h.Recurrences.HandleUpdateRecurrence)
				r.Delete("/{id}", h.Recurrences.HandleDeleteRecurrence)
				r.Post("/{id}/pause", h.Recurrences.HandlePauseRecurrence)
				r.Post("/{id}/resume", h.Recurrences.HandleResumeRecurrence)
				r.Post("/{id}/execute", h.Recurrences.HandleExecuteRecurrence)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.User.AdminMiddleware)
				r.Get("/admin/recurrences/stats", h.Admin.HandleGetRecurrenceStats)
				r.Post("/admin/recurrences/execute", h.Admin.HandleExecutePending)
				r.Post("/admin/stats/clear-cache", h.Admin.HandleClearStatsCache)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			sendJSONError(w, "Not found", http.StatusNotFound)
			return
		}
		http.NotFound(w, r)
	})

	return r
}
