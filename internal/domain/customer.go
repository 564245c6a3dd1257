/**
 * @description
 * This file defines the customer projection: the ledger-service's local,
 * eventually-consistent view of remote customer state. The projection is owned
 * exclusively by this service; it is refreshed by customer lifecycle events and
 * seeded by synchronous lookups on cache miss.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomerStatus is the tri-state answer to "is this customer active?".
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerUnknown  CustomerStatus = "unknown"
)

// CustomerProjection is one consistency-cache entry. `LastEventAt` and
// `LastEventID` record the most recent lifecycle event applied to the entry and
// are used to discard duplicate or out-of-order deliveries: an incoming event
// is applied only if it is strictly newer than the cached one.
type CustomerProjection struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Active       bool      `json:"active"`
	LastEventID  uuid.UUID `json:"last_event_id"`
	LastEventAt  time.Time `json:"last_event_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status maps the projection's active flag to the tri-state status.
func (p *CustomerProjection) Status() CustomerStatus {
	if p == nil {
		return CustomerUnknown
	}
	if p.Active {
		return CustomerActive
	}
	return CustomerInactive
}
