/**
 * @description
 * This file contains the event handler that processes customer lifecycle
 * messages from RabbitMQ. Created/updated events refresh the consistency
 * cache; deletion events additionally trigger the account-deletion cascade —
 * without a live customer lookup, since the customer is already gone.
 *
 * Handler return values drive broker acknowledgement: true acks (including
 * malformed or stale messages, which would never succeed on redelivery), false
 * nacks-and-requeues transient failures.
 *
 * @dependencies
 * - context, encoding/json, log, time: Standard Go libraries.
 * - internal/domain, internal/telemetry: Event model and counters.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/telemetry"
	"github.com/google/uuid"
)

const consumerProcessingTimeout = 30 * time.Second

// CustomerEventConsumer applies customer lifecycle events to the ledger.
type CustomerEventConsumer struct {
	cache   *CustomerCache
	service *Service
	metrics *telemetry.Metrics
}

// NewCustomerEventConsumer creates a new instance of CustomerEventConsumer.
func NewCustomerEventConsumer(cache *CustomerCache, service *Service, metrics *telemetry.Metrics) *CustomerEventConsumer {
	return &CustomerEventConsumer{cache: cache, service: service, metrics: metrics}
}

// HandleMessage processes one customer lifecycle delivery.
func (c *CustomerEventConsumer) HandleMessage(body []byte) bool {
	var event domain.CustomerLifecycleEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=customer_consumer msg=\"failed to unmarshal event; acknowledging to drop\" err=%v", err)
		return true
	}

	if event.CustomerID == uuid.Nil || event.EventID == uuid.Nil || event.OccurredAt.IsZero() {
		log.Printf("level=warn component=customer_consumer msg=\"event missing identifiers; acknowledging to drop\" event_type=%s customer_id=%s", event.EventType, event.CustomerID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumerProcessingTimeout)
	defer cancel()

	applied, err := c.cache.ApplyEvent(ctx, event)
	if err != nil {
		log.Printf("level=error component=customer_consumer msg=\"failed to apply event; re-queuing\" event_id=%s customer_id=%s err=%v", event.EventID, event.CustomerID, err)
		return false
	}

	// The cascade runs for every deleted delivery, applied or stale: customer
	// deletion is terminal, so a "stale" delete can only be a duplicate — and
	// the cascade is idempotent. This also covers redeliveries where the
	// projection write landed but the cascade failed on the first attempt.
	if event.EventType == domain.CustomerEventDeleted {
		deleted, err := c.service.DeleteAccountsByCustomer(ctx, event.CustomerID)
		if err != nil {
			log.Printf("level=error component=customer_consumer msg=\"deletion cascade failed; re-queuing\" customer_id=%s err=%v", event.CustomerID, err)
			return false
		}
		log.Printf("level=info component=customer_consumer msg=\"deletion cascade applied\" customer_id=%s accounts_deleted=%d", event.CustomerID, deleted)
	}

	if !applied {
		c.metrics.RecordStaleEventDropped(ctx, event.EventType)
		log.Printf("level=info component=customer_consumer msg=\"stale event dropped\" event_id=%s customer_id=%s event_type=%s", event.EventID, event.CustomerID, event.EventType)
		return true
	}

	c.metrics.RecordEventConsumed(ctx, event.EventType)
	return true
}
