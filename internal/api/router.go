/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * the necessary middleware for authentication.
 *
 * The public surface requires a bearer token; the customer-cascade endpoint is
 * server-to-server only and is guarded by the internal API key instead.
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

// LedgerRoutes creates and returns the router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, jwksURL, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require bearer authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Post("/accounts", h.OpenAccountHandler)
		r.Get("/accounts/{accountNumber}/balance", h.GetBalanceHandler)
		r.Get("/accounts/{accountNumber}/movements", h.ListMovementsHandler)
		r.Post("/accounts/{accountNumber}/movements", h.CreateMovementHandler)
		r.Delete("/accounts/{accountNumber}", h.DeleteAccountHandler)

		r.Post("/movements/{movementID}/reverse", h.ReverseMovementHandler)

		r.Get("/customers/{customerID}/statement", h.StatementHandler)
	})

	// Server-to-server endpoints, guarded by the shared internal key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Delete("/internal/customers/{customerID}/accounts", h.DeleteCustomerAccountsHandler)
	})

	return r
}
