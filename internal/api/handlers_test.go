package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corebank/ledger-service/internal/app"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/pkg/customerclient"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid amount", app.ErrInvalidAmount, http.StatusBadRequest, CodeValidationError},
		{"invalid kind", app.ErrInvalidKind, http.StatusBadRequest, CodeValidationError},
		{"missing transaction id", app.ErrMissingTransactionID, http.StatusBadRequest, CodeValidationError},
		{"reversal of reversal", app.ErrReversalOfReversal, http.StatusBadRequest, CodeValidationError},
		{"invalid date range", app.ErrInvalidDateRange, http.StatusBadRequest, CodeValidationError},
		{"insufficient funds", app.ErrInsufficientFunds, http.StatusUnprocessableEntity, CodeInsufficientFunds},
		{"account inactive", app.ErrAccountInactive, http.StatusUnprocessableEntity, CodeAccountInactive},
		{"customer inactive", app.ErrCustomerInactive, http.StatusUnprocessableEntity, CodeCustomerInactive},
		{"idempotency conflict", app.ErrIdempotencyConflict, http.StatusConflict, CodeIdempotencyConflict},
		{"already reversed", store.ErrMovementAlreadyReversed, http.StatusConflict, CodeIdempotencyConflict},
		{"concurrent modification", app.ErrConcurrentModification, http.StatusConflict, CodeConcurrentModification},
		{"customer unavailable", app.ErrCustomerUnavailable, http.StatusServiceUnavailable, CodeCustomerUnavailable},
		{"rate limited", app.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
		{"account not found", store.ErrAccountNotFound, http.StatusNotFound, CodeNotFound},
		{"movement not found", store.ErrMovementNotFound, http.StatusNotFound, CodeNotFound},
		{"customer not found", customerclient.ErrCustomerNotFound, http.StatusNotFound, CodeNotFound},
		{"unknown error", errors.New("pq: out of shared memory"), http.StatusInternalServerError, CodeInternal},
	}

	h := NewLedgerHandlers(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/accounts", nil)

			// Wrapped errors must map the same way as bare sentinels.
			h.writeServiceError(rec, req, wrap(tt.err))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if body["error"] == "" {
				t.Error("error message must not be empty")
			}
		})
	}
}

func wrap(err error) error {
	return errors.Join(errors.New("handling movement"), err)
}

func TestInternalAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name        string
		requiredKey string
		providedKey string
		wantStatus  int
	}{
		{"matching key passes", "secret", "secret", http.StatusNoContent},
		{"wrong key rejected", "secret", "guess", http.StatusUnauthorized},
		{"missing key rejected", "secret", "", http.StatusUnauthorized},
		{"empty requirement disables the check", "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/internal/customers/x/accounts", nil)
			if tt.providedKey != "" {
				req.Header.Set("X-Internal-API-Key", tt.providedKey)
			}

			InternalAuthMiddleware(tt.requiredKey)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
