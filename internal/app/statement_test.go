package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/google/uuid"
)

func TestBuildAccountStatement(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	account := domain.Account{AccountNumber: 10000001, Category: domain.CategoryChecking, Balance: 70}

	// Newest-first, as the repository returns them: credit 100, debit 30,
	// reversal of a 20 debit.
	movements := []domain.Movement{
		{Kind: domain.MovementReversal, Amount: 20, BalanceBefore: 50, BalanceAfter: 70},
		{Kind: domain.MovementDebit, Amount: 30, BalanceBefore: 80, BalanceAfter: 50},
		{Kind: domain.MovementCredit, Amount: 100, BalanceBefore: -20, BalanceAfter: 80},
	}

	tests := []struct {
		name        string
		end         time.Time
		movements   []domain.Movement
		wantOpening int64
		wantClosing int64
		wantCredits int64
		wantDebits  int64
	}{
		{
			name:        "range ending now uses current balance",
			end:         now,
			movements:   movements,
			wantOpening: -20,
			wantClosing: 70,
			wantCredits: 120, // the reversal restores funds, so it counts as a credit
			wantDebits:  30,
		},
		{
			name:        "historical range uses last in-range snapshot",
			end:         now.Add(-24 * time.Hour),
			movements:   movements,
			wantOpening: -20,
			wantClosing: 70,
			wantCredits: 120,
			wantDebits:  30,
		},
		{
			name:        "empty range falls back to current balance",
			end:         now.Add(-24 * time.Hour),
			movements:   nil,
			wantOpening: 70,
			wantClosing: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := buildAccountStatement(account, tt.movements, tt.end, now)
			if section.OpeningBalance != tt.wantOpening {
				t.Errorf("opening balance = %d, want %d", section.OpeningBalance, tt.wantOpening)
			}
			if section.ClosingBalance != tt.wantClosing {
				t.Errorf("closing balance = %d, want %d", section.ClosingBalance, tt.wantClosing)
			}
			if section.TotalCredits != tt.wantCredits {
				t.Errorf("total credits = %d, want %d", section.TotalCredits, tt.wantCredits)
			}
			if section.TotalDebits != tt.wantDebits {
				t.Errorf("total debits = %d, want %d", section.TotalDebits, tt.wantDebits)
			}
			if section.Movements == nil {
				t.Error("movements must never be nil in the response")
			}
		})
	}
}

func TestGenerateStatement(t *testing.T) {
	repo := newLedgerRepoStub()
	repo.accountsByCustomer = []domain.Account{
		{AccountNumber: 10000001, CustomerID: activeCustomerID(), Category: domain.CategorySavings, Balance: 150},
	}
	repo.rangeMovements = []domain.Movement{
		{Kind: domain.MovementCredit, Amount: 150, BalanceBefore: 0, BalanceAfter: 150},
	}
	service, _ := newTestService(repo, nil)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)
	statement, err := service.GenerateStatement(context.Background(), activeCustomerID(), start, end)
	if err != nil {
		t.Fatalf("statement failed: %v", err)
	}
	if len(statement.Accounts) != 1 {
		t.Fatalf("expected 1 account section, got %d", len(statement.Accounts))
	}
	if statement.NetChange != 150 {
		t.Fatalf("expected net change 150, got %d", statement.NetChange)
	}
	if statement.Accounts[0].OpeningBalance != 0 || statement.Accounts[0].ClosingBalance != 150 {
		t.Fatalf("unexpected balances: %+v", statement.Accounts[0])
	}
}

func TestGenerateStatementValidation(t *testing.T) {
	repo := newLedgerRepoStub()
	service, _ := newTestService(repo, nil)
	start := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	if _, err := service.GenerateStatement(context.Background(), activeCustomerID(), start, end); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if _, err := service.GenerateStatement(context.Background(), uuid.Nil, end, start); !errors.Is(err, ErrMissingCustomerID) {
		t.Fatalf("expected ErrMissingCustomerID, got %v", err)
	}
}
