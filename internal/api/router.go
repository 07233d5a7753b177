/**
 * @description
 * This file sets up the HTTP router for the credit-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CreditRoutes creates and returns a new router for the credit service.
func CreditRoutes(h *CreditHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Post("/accounts/sync", h.SyncAccountHandler)
		r.Get("/accounts/{accountID}", h.GetAccountHandler)

		r.Post("/credits/consume", h.ConsumeCreditsHandler)
		r.Post("/credits/grant", h.GrantCreditsHandler)
		r.Post("/admin/credits/grant", h.AdminGrantHandler)

		r.Post("/evaluations", h.EvaluateAnswerHandler)
		r.Post("/explanations", h.ExplainTopicHandler)
	})

	return r
}
