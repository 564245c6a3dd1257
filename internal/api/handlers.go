/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * Every business error maps to a stable machine-readable code, so clients
 * branch on `code` rather than on message text.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: Service logic, models, errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/corebank/ledger-service/internal/app"
	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/pkg/customerclient"
	"github.com/google/uuid"
)

// Stable error codes returned in the `code` field of error responses.
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeIdempotencyConflict    = "IDEMPOTENCY_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeCustomerUnavailable    = "CUSTOMER_UNAVAILABLE"
	CodeCustomerInactive       = "CUSTOMER_INACTIVE"
	CodeAccountInactive        = "ACCOUNT_INACTIVE"
	CodeNotFound               = "NOT_FOUND"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// OpenAccountHandler handles requests to open a new account.
func (h *LedgerHandlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}
	req.CorrelationID = r.Header.Get("X-Correlation-ID")

	account, err := h.service.OpenAccount(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// CreateMovementHandler handles requests to apply a CREDIT or DEBIT movement
// to an account.
func (h *LedgerHandlers) CreateMovementHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.accountNumberParam(w, r)
	if !ok {
		return
	}

	var cmd domain.MovementCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}
	cmd.AccountNumber = accountNumber
	cmd.CorrelationID = r.Header.Get("X-Correlation-ID")
	if cmd.IdempotencyKey == nil {
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			cmd.IdempotencyKey = &key
		}
	}

	movement, err := h.service.ApplyMovement(r.Context(), cmd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, movement)
}

// ReverseMovementHandler handles requests to reverse a committed movement.
func (h *LedgerHandlers) ReverseMovementHandler(w http.ResponseWriter, r *http.Request) {
	movementID, err := uuid.Parse(chi.URLParam(r, "movementID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid movement id")
		return
	}

	var cmd domain.ReversalCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}
	cmd.CorrelationID = r.Header.Get("X-Correlation-ID")

	reversal, err := h.service.ReverseMovement(r.Context(), movementID, cmd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, reversal)
}

// GetBalanceHandler returns the current balance of an account.
func (h *LedgerHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.accountNumberParam(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountNumber)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balance)
}

// ListMovementsHandler returns an account's movements, newest first.
func (h *LedgerHandlers) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.accountNumberParam(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	movements, err := h.service.ListMovements(r.Context(), accountNumber, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if movements == nil {
		movements = []domain.Movement{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_number": accountNumber,
		"movements":      movements,
		"limit":          limit,
		"offset":         offset,
	})
}

// DeleteAccountHandler soft-deletes an account, or hard-deletes it together
// with its movements when `?hard=true`.
func (h *LedgerHandlers) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.accountNumberParam(w, r)
	if !ok {
		return
	}
	hard := r.URL.Query().Get("hard") == "true"

	if err := h.service.DeleteAccount(r.Context(), accountNumber, hard, r.Header.Get("X-Correlation-ID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_number": accountNumber,
		"hard":           hard,
	})
}

// DeleteCustomerAccountsHandler hard-deletes every account owned by a
// customer. This is the server-to-server entry point for the deletion cascade.
func (h *LedgerHandlers) DeleteCustomerAccountsHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid customer id")
		return
	}

	deleted, err := h.service.DeleteAccountsByCustomer(r.Context(), customerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer_id":      customerID,
		"accounts_deleted": deleted,
	})
}

// StatementHandler builds a statement over all of a customer's accounts for
// the requested date range. Dates are inclusive `YYYY-MM-DD`; the end date is
// widened to the end of its day.
func (h *LedgerHandlers) StatementHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid customer id")
		return
	}

	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid or missing start date, expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid or missing end date, expected YYYY-MM-DD")
		return
	}
	end = end.Add(24*time.Hour - time.Nanosecond)

	statement, err := h.service.GenerateStatement(r.Context(), customerID, start, end)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statement)
}

func (h *LedgerHandlers) accountNumberParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	accountNumber, err := strconv.ParseInt(chi.URLParam(r, "accountNumber"), 10, 64)
	if err != nil || accountNumber <= 0 {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid account number")
		return 0, false
	}
	return accountNumber, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// writeServiceError maps a service error onto an HTTP status and stable code.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidKind),
		errors.Is(err, app.ErrInvalidCategory),
		errors.Is(err, app.ErrMissingTransactionID),
		errors.Is(err, app.ErrMissingCustomerID),
		errors.Is(err, app.ErrReversalOfReversal),
		errors.Is(err, app.ErrInvalidDateRange):
		h.writeError(w, http.StatusBadRequest, CodeValidationError, err.Error())

	case errors.Is(err, app.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, CodeInsufficientFunds, err.Error())

	case errors.Is(err, app.ErrAccountInactive):
		h.writeError(w, http.StatusUnprocessableEntity, CodeAccountInactive, err.Error())

	case errors.Is(err, app.ErrCustomerInactive):
		h.writeError(w, http.StatusUnprocessableEntity, CodeCustomerInactive, err.Error())

	case errors.Is(err, app.ErrIdempotencyConflict),
		errors.Is(err, store.ErrMovementAlreadyReversed):
		h.writeError(w, http.StatusConflict, CodeIdempotencyConflict, err.Error())

	case errors.Is(err, app.ErrConcurrentModification):
		h.writeError(w, http.StatusConflict, CodeConcurrentModification, err.Error())

	case errors.Is(err, app.ErrCustomerUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, CodeCustomerUnavailable, err.Error())

	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, CodeRateLimited, err.Error())

	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrMovementNotFound),
		errors.Is(err, customerclient.ErrCustomerNotFound):
		h.writeError(w, http.StatusNotFound, CodeNotFound, err.Error())

	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" path=%s err=%v", r.URL.Path, err)
		h.writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{"code": code, "error": message})
}
