/**
 * @description
 * This file declares the business-level error taxonomy of the ledger-service.
 * Storage-shaped errors (not-found, version conflicts, constraint violations)
 * live in internal/store; everything here is a rule of the ledger itself. The
 * API layer maps both sets onto stable error codes.
 */

package app

import "errors"

var (
	// Validation failures: rejected immediately, no side effects.
	ErrInvalidAmount        = errors.New("movement amount must be positive")
	ErrInvalidKind          = errors.New("unknown movement kind")
	ErrInvalidCategory      = errors.New("unknown account category")
	ErrMissingTransactionID = errors.New("transaction id is required")
	ErrMissingCustomerID    = errors.New("customer id is required")
	ErrReversalOfReversal   = errors.New("a reversal movement cannot be reversed")

	// ErrAccountInactive is returned for movements against a soft-deleted account.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrInsufficientFunds is returned when a debit is not balance-covered.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIdempotencyConflict is returned when a transaction id or idempotency
	// key is replayed with different defining fields (account, amount, kind).
	ErrIdempotencyConflict = errors.New("request conflicts with an existing movement for the same key")

	// ErrConcurrentModification is returned once the bounded version-guard
	// retries are exhausted.
	ErrConcurrentModification = errors.New("account was modified concurrently; retries exhausted")

	// ErrCustomerInactive is returned when the owning customer is known to be
	// deactivated or deleted.
	ErrCustomerInactive = errors.New("customer is not active")

	// ErrCustomerUnavailable is returned when customer validation could not be
	// completed (lookup failed or timed out). The operation fails closed.
	ErrCustomerUnavailable = errors.New("customer validation unavailable")

	// ErrRateLimited is returned when the per-account movement rate limit is hit.
	ErrRateLimited = errors.New("too many movement requests for this account")
)
