/**
 * @description
 * This file defines the Movement entity, the central ledger record for any
 * balance change against an account, together with the command DTOs used to
 * create and reverse movements.
 *
 * @notes
 * - A movement is immutable once persisted. Reversals create a new movement and
 *   flip the `Reversed` flag on the original; nothing else is ever updated.
 * - `TransactionID` is the caller-supplied identifier that makes retried
 *   "create movement" calls idempotent. `IdempotencyKey` is an optional second
 *   key for the same purpose. Both are unique across the whole store.
 * - Amounts are always positive `int64` cents; the direction of a movement is
 *   carried by its kind (and, for reversals, by the original movement's kind).
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind enumerates the supported movement types.
type MovementKind string

const (
	MovementCredit   MovementKind = "CREDIT"
	MovementDebit    MovementKind = "DEBIT"
	MovementReversal MovementKind = "REVERSAL"
)

// Movement represents one immutable ledger entry. This struct maps directly to
// the `movements` table in the database.
type Movement struct {
	ID                 uuid.UUID    `json:"id"`
	AccountNumber      int64        `json:"account_number"`
	Kind               MovementKind `json:"kind"`
	Amount             int64        `json:"amount"` // in cents, always positive
	BalanceBefore      int64        `json:"balance_before"`
	BalanceAfter       int64        `json:"balance_after"`
	Description        string       `json:"description,omitempty"`
	Reference          string       `json:"reference,omitempty"`
	TransactionID      string       `json:"transaction_id"`
	IdempotencyKey     *string      `json:"idempotency_key,omitempty"`
	Reversed           bool         `json:"reversed"`
	ReversedMovementID *uuid.UUID   `json:"reversed_movement_id,omitempty"`
	CorrelationID      *string      `json:"correlation_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// SignedAmount returns the net effect of the movement on the account balance.
// It is derived from the persisted balance snapshots, so it is correct for all
// kinds including reversals, whose direction depends on the reversed movement.
func (m *Movement) SignedAmount() int64 {
	return m.BalanceAfter - m.BalanceBefore
}

// MovementCommand is the DTO for incoming create-movement API requests.
type MovementCommand struct {
	AccountNumber  int64        `json:"-"`
	Kind           MovementKind `json:"kind"`
	Amount         int64        `json:"amount"`
	TransactionID  string       `json:"transaction_id"`
	IdempotencyKey *string      `json:"idempotency_key,omitempty"`
	Description    string       `json:"description,omitempty"`
	Reference      string       `json:"reference,omitempty"`
	CorrelationID  string       `json:"-"`
}

// ReversalCommand is the DTO for incoming reverse-movement API requests. The
// amount and direction are taken from the movement being reversed, so callers
// only supply the identifiers.
type ReversalCommand struct {
	TransactionID  string  `json:"transaction_id"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
	Description    string  `json:"description,omitempty"`
	CorrelationID  string  `json:"-"`
}
