/**
 * @description
 * This file defines the event payloads exchanged over RabbitMQ: the customer
 * lifecycle events the ledger-service consumes from the customer-service, and
 * the account/movement events it publishes for downstream consumers.
 *
 * @notes
 * - Published events are fire-and-forget: a lost event is never retransmitted,
 *   so consumers must be designed for eventual, not guaranteed, consistency.
 * - The partition key of every published event is the owning entity identifier
 *   (account number or customer id), which guarantees per-entity ordering of
 *   the events that are delivered.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer lifecycle event types consumed from the customer-service.
const (
	CustomerEventCreated = "customer.created"
	CustomerEventUpdated = "customer.updated"
	CustomerEventDeleted = "customer.deleted"
)

// Ledger event routing keys published to the ledger events exchange.
const (
	LedgerEventAccountCreated  = "account.created"
	LedgerEventAccountDeleted  = "account.deleted"
	LedgerEventMovementCreated = "movement.created"
)

// CustomerLifecycleEvent is the message the customer-service emits whenever a
// customer is created, updated, or deleted. `EventID` and `OccurredAt` drive
// the staleness check in the consistency cache.
type CustomerLifecycleEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	EventType  string    `json:"event_type"`
	CustomerID uuid.UUID `json:"customer_id"`
	FullName   string    `json:"full_name,omitempty"`
	Active     bool      `json:"active"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountEvent is the payload published when an account is created or deleted.
type AccountEvent struct {
	AccountNumber int64           `json:"account_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Category      AccountCategory `json:"category,omitempty"`
	Balance       int64           `json:"balance"`
	HardDeleted   bool            `json:"hard_deleted,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// MovementEvent is the payload published after a movement has been committed.
type MovementEvent struct {
	MovementID    uuid.UUID    `json:"movement_id"`
	AccountNumber int64        `json:"account_number"`
	Kind          MovementKind `json:"kind"`
	Amount        int64        `json:"amount"`
	BalanceAfter  int64        `json:"balance_after"`
	TransactionID string       `json:"transaction_id"`
	OccurredAt    time.Time    `json:"occurred_at"`
}
