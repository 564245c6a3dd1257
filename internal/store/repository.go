/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * The storage layer upholds the ledger's consistency contracts: every movement is
 * applied in one atomic unit scoped to its account, guarded by the account's
 * version counter, and the transaction-id/idempotency-key unique constraints are
 * the ultimate at-most-once guard.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindAccountByNumber(ctx context.Context, accountNumber int64) (*domain.Account, error)
	FindAccountsByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error)
	// DeactivateAccount flips the active flag (soft delete) and bumps the version.
	DeactivateAccount(ctx context.Context, accountNumber int64) error
	// DeleteAccountCascade removes the account and all of its movements in one
	// atomic unit and returns the number of movements deleted.
	DeleteAccountCascade(ctx context.Context, accountNumber int64) (int64, error)

	// Movement methods
	FindMovementByID(ctx context.Context, movementID uuid.UUID) (*domain.Movement, error)
	FindMovementByTransactionID(ctx context.Context, transactionID string) (*domain.Movement, error)
	FindMovementByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Movement, error)
	// ApplyMovement persists the movement and the new account balance as one
	// all-or-nothing unit, guarded by the account's version. For reversals it
	// additionally flags the reversed movement inside the same unit. Returns
	// ErrVersionConflict when a concurrent writer changed the account first.
	ApplyMovement(ctx context.Context, movement *domain.Movement, expectedVersion int64) error
	ListMovementsByAccount(ctx context.Context, accountNumber int64, limit, offset int) ([]domain.Movement, error)
	// ListMovementsByAccountBetween returns the movements with created_at in
	// [start, end], ordered newest-first.
	ListMovementsByAccountBetween(ctx context.Context, accountNumber int64, start, end time.Time) ([]domain.Movement, error)

	// Customer projection methods
	FindCustomerProjection(ctx context.Context, customerID uuid.UUID) (*domain.CustomerProjection, error)
	// UpsertCustomerProjection applies the projection only if it is strictly
	// newer than the stored entry; the returned bool reports whether the write
	// was applied or discarded as stale.
	UpsertCustomerProjection(ctx context.Context, projection *domain.CustomerProjection) (bool, error)
}
