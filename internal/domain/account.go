/**
 * @description
 * This file defines the Account entity and its request DTOs for the ledger-service.
 * An account holds a flat, denormalized snapshot of its owning customer (id and
 * display name) rather than a reference to the full customer record; the ledger
 * only ever needs a read-only projection of the customer.
 *
 * @notes
 * - Balances are stored as `int64` in the smallest currency unit (cents), which
 *   avoids floating-point inaccuracies with financial data.
 * - The `Version` counter implements optimistic concurrency: every balance
 *   mutation is guarded by a compare-and-swap on this field.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountCategory enumerates the supported account products.
type AccountCategory string

const (
	CategorySavings  AccountCategory = "SAVINGS"
	CategoryChecking AccountCategory = "CHECKING"
)

// ValidCategory reports whether the given category is one the ledger accepts.
func ValidCategory(c AccountCategory) bool {
	return c == CategorySavings || c == CategoryChecking
}

// Account represents a ledger account. This struct maps directly to the
// `accounts` table in the database.
type Account struct {
	AccountNumber int64           `json:"account_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Category      AccountCategory `json:"category"`
	Balance       int64           `json:"balance"` // in cents
	Active        bool            `json:"active"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OpenAccountRequest is the DTO for incoming account-open API requests.
type OpenAccountRequest struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Category      AccountCategory `json:"category"`
	CorrelationID string          `json:"-"`
}

// BalanceResponse is the read model returned by the get-balance operation.
type BalanceResponse struct {
	AccountNumber int64     `json:"account_number"`
	Balance       int64     `json:"balance"`
	Active        bool      `json:"active"`
	AsOf          time.Time `json:"as_of"`
}
