/**
 * @description
 * This file implements the statement aggregator: a pure read path that folds a
 * date-ranged movement sequence per account into opening/closing balances and
 * summary totals. No mutation, no idempotency concerns.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/google/uuid"
)

var ErrInvalidDateRange = errors.New("statement start date must not be after end date")

// GenerateStatement builds the statement for every account the customer owns
// over [start, end]. Movements are returned newest-first for display; balances
// are derived by folding them oldest-first.
func (s *Service) GenerateStatement(ctx context.Context, customerID uuid.UUID, start, end time.Time) (*domain.Statement, error) {
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomerID
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	accounts, err := s.repo.FindAccountsByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts for customer %s: %w", customerID, err)
	}

	now := time.Now().UTC()
	statement := &domain.Statement{
		CustomerID: customerID,
		StartDate:  start,
		EndDate:    end,
		Accounts:   make([]domain.AccountStatement, 0, len(accounts)),
	}

	for i := range accounts {
		movements, err := s.repo.ListMovementsByAccountBetween(ctx, accounts[i].AccountNumber, start, end)
		if err != nil {
			return nil, fmt.Errorf("list movements for account %d: %w", accounts[i].AccountNumber, err)
		}
		section := buildAccountStatement(accounts[i], movements, end, now)
		statement.NetChange += section.ClosingBalance - section.OpeningBalance
		statement.Accounts = append(statement.Accounts, section)
	}

	return statement, nil
}

// buildAccountStatement folds one account's in-range movements into a statement
// section. `movements` must be ordered newest-first.
//
// The closing balance is the account's current balance when the range end
// includes "now" (or when the range holds no movements); otherwise it is the
// balance snapshot of the last in-range movement. The opening balance is the
// closing balance minus the signed sum of in-range movements, where the signed
// amount of each movement is derived from its balance snapshots so reversals
// fold with the correct direction.
func buildAccountStatement(account domain.Account, movements []domain.Movement, end, now time.Time) domain.AccountStatement {
	closing := account.Balance
	if end.Before(now) && len(movements) > 0 {
		closing = movements[0].BalanceAfter
	}

	var signedSum, totalCredits, totalDebits int64
	for i := range movements {
		signed := movements[i].SignedAmount()
		signedSum += signed
		if signed > 0 {
			totalCredits += movements[i].Amount
		} else {
			totalDebits += movements[i].Amount
		}
	}

	if movements == nil {
		movements = []domain.Movement{}
	}

	return domain.AccountStatement{
		AccountNumber:  account.AccountNumber,
		Category:       account.Category,
		OpeningBalance: closing - signedSum,
		ClosingBalance: closing,
		TotalCredits:   totalCredits,
		TotalDebits:    totalDebits,
		Movements:      movements,
	}
}
