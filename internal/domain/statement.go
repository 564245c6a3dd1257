/**
 * @description
 * This file defines the read models returned by the statement operation: a
 * per-account breakdown with opening/closing balances and summary totals, plus
 * the customer-level net change across all accounts.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatement is the statement section for one account. Movements are
// ordered newest-first for display.
type AccountStatement struct {
	AccountNumber  int64           `json:"account_number"`
	Category       AccountCategory `json:"category"`
	OpeningBalance int64           `json:"opening_balance"`
	ClosingBalance int64           `json:"closing_balance"`
	TotalCredits   int64           `json:"total_credits"`
	TotalDebits    int64           `json:"total_debits"`
	Movements      []Movement      `json:"movements"`
}

// Statement is the full statement for a customer over a date range.
type Statement struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	Accounts   []AccountStatement `json:"accounts"`
	NetChange  int64              `json:"net_change"`
}
