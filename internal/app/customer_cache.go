/**
 * @description
 * This file implements the cross-service consistency cache: the ledger's local,
 * eventually-consistent view of remote customer state. The cache is backed by
 * the `customer_projections` table, refreshed by customer lifecycle events, and
 * seeded by a timeout-bounded synchronous lookup on a never-seen customer.
 *
 * Policy: once seeded, the cache wins — the synchronous path only runs on a
 * miss. Event writes are gated on event recency in the store, so duplicate and
 * out-of-order deliveries are discarded without any locking. Account creation
 * is the one operation that never trusts the cache for customer existence; it
 * always confirms through the live lookup.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - internal/domain, internal/store: Projection model and persistence.
 * - pkg/customerclient: The synchronous customer-service lookup.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/pkg/customerclient"
	"github.com/google/uuid"
)

// CustomerLookup is the synchronous fallback used to seed the cache.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, customerID string) (*customerclient.Customer, error)
}

// CustomerCache answers the tri-state "is this customer active?" question.
type CustomerCache struct {
	repo          store.Repository
	lookup        CustomerLookup
	lookupTimeout time.Duration
}

// NewCustomerCache creates a consistency cache over the given repository and
// customer-service lookup.
func NewCustomerCache(repo store.Repository, lookup CustomerLookup, lookupTimeout time.Duration) *CustomerCache {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &CustomerCache{repo: repo, lookup: lookup, lookupTimeout: lookupTimeout}
}

// Status resolves the customer's state from the local projection, falling back
// to one synchronous lookup on a cache miss. A failed fallback yields
// CustomerUnknown together with ErrCustomerUnavailable: callers fail closed.
func (c *CustomerCache) Status(ctx context.Context, customerID uuid.UUID) (domain.CustomerStatus, error) {
	projection, err := c.repo.FindCustomerProjection(ctx, customerID)
	if err == nil {
		return projection.Status(), nil
	}
	if !errors.Is(err, store.ErrProjectionNotFound) {
		return domain.CustomerUnknown, err
	}

	customer, err := c.liveLookup(ctx, customerID)
	if err != nil {
		if errors.Is(err, customerclient.ErrCustomerNotFound) {
			return domain.CustomerUnknown, err
		}
		return domain.CustomerUnknown, fmt.Errorf("%w: %v", ErrCustomerUnavailable, err)
	}

	c.seed(ctx, customerID, customer)
	if customer.Active {
		return domain.CustomerActive, nil
	}
	return domain.CustomerInactive, nil
}

// ConfirmActiveLive validates a customer through the synchronous path,
// bypassing the cache. Used for account creation, where the projection is never
// trusted as the source of truth for customer existence. The result still seeds
// the cache so subsequent movement checks stay local.
func (c *CustomerCache) ConfirmActiveLive(ctx context.Context, customerID uuid.UUID) (*customerclient.Customer, error) {
	customer, err := c.liveLookup(ctx, customerID)
	if err != nil {
		if errors.Is(err, customerclient.ErrCustomerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCustomerUnavailable, err)
	}

	c.seed(ctx, customerID, customer)
	if !customer.Active {
		return nil, ErrCustomerInactive
	}
	return customer, nil
}

// ApplyEvent folds one customer lifecycle event into the projection. The
// returned bool reports whether the event was applied or discarded as stale.
// Deletion events always project the customer as inactive regardless of the
// event's active flag.
func (c *CustomerCache) ApplyEvent(ctx context.Context, event domain.CustomerLifecycleEvent) (bool, error) {
	active := event.Active
	if event.EventType == domain.CustomerEventDeleted {
		active = false
	}
	return c.repo.UpsertCustomerProjection(ctx, &domain.CustomerProjection{
		CustomerID:   event.CustomerID,
		CustomerName: event.FullName,
		Active:       active,
		LastEventID:  event.EventID,
		LastEventAt:  event.OccurredAt,
	})
}

func (c *CustomerCache) liveLookup(ctx context.Context, customerID uuid.UUID) (*customerclient.Customer, error) {
	if c.lookup == nil {
		return nil, errors.New("customer lookup is not configured")
	}
	lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()
	return c.lookup.GetCustomer(lookupCtx, customerID.String())
}

// seed records a lookup result in the projection. The lookup time is used as
// the recency watermark: the direct query is authoritative, so any event that
// was emitted before it loses the upsert race and is discarded as stale.
func (c *CustomerCache) seed(ctx context.Context, customerID uuid.UUID, customer *customerclient.Customer) {
	_, err := c.repo.UpsertCustomerProjection(ctx, &domain.CustomerProjection{
		CustomerID:   customerID,
		CustomerName: customer.FullName,
		Active:       customer.Active,
		LastEventID:  uuid.New(),
		LastEventAt:  time.Now().UTC(),
	})
	if err != nil {
		// Seeding is an optimization; the next miss will retry it.
		log.Printf("level=warn component=customer_cache msg=\"failed to seed projection\" customer_id=%s err=%v", customerID, err)
	}
}
