/**
 * @description
 * This file implements the fire-and-forget event publisher of the ledger-service.
 * Domain events are emitted after the ledger mutation has committed, on a
 * detached goroutine with its own timeout, so a broker problem can never roll
 * back or delay a committed movement. Failures are logged and counted — this is
 * an at-most-once delivery attempt by design, and the counters are what make
 * systemic publish failure visible to operators.
 *
 * @dependencies
 * - context, log, strconv, time: Standard Go libraries.
 * - internal/domain, internal/telemetry: Event payloads and counters.
 * - pkg/rabbitmq: The broker producer.
 */

package app

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/telemetry"
	"github.com/corebank/ledger-service/pkg/rabbitmq"
)

const publishTimeout = 5 * time.Second

// EventPublisher emits ledger domain events to the broker.
type EventPublisher struct {
	producer rabbitmq.Publisher
	exchange string
	metrics  *telemetry.Metrics
}

// NewEventPublisher creates a publisher bound to one topic exchange. A nil
// producer disables publishing entirely; every attempt is then counted as a
// failure so the degradation is not silent.
func NewEventPublisher(producer rabbitmq.Publisher, exchange string, metrics *telemetry.Metrics) *EventPublisher {
	return &EventPublisher{producer: producer, exchange: exchange, metrics: metrics}
}

// AccountCreated publishes an account.created event keyed by account number.
func (p *EventPublisher) AccountCreated(account *domain.Account, correlationID string) {
	p.publishAsync(domain.LedgerEventAccountCreated, strconv.FormatInt(account.AccountNumber, 10), correlationID, domain.AccountEvent{
		AccountNumber: account.AccountNumber,
		CustomerID:    account.CustomerID,
		Category:      account.Category,
		Balance:       account.Balance,
		OccurredAt:    time.Now().UTC(),
	})
}

// AccountDeleted publishes an account.deleted event keyed by account number.
func (p *EventPublisher) AccountDeleted(account *domain.Account, hard bool, correlationID string) {
	p.publishAsync(domain.LedgerEventAccountDeleted, strconv.FormatInt(account.AccountNumber, 10), correlationID, domain.AccountEvent{
		AccountNumber: account.AccountNumber,
		CustomerID:    account.CustomerID,
		Balance:       account.Balance,
		HardDeleted:   hard,
		OccurredAt:    time.Now().UTC(),
	})
}

// MovementCreated publishes a movement.created event keyed by account number.
func (p *EventPublisher) MovementCreated(movement *domain.Movement) {
	correlationID := ""
	if movement.CorrelationID != nil {
		correlationID = *movement.CorrelationID
	}
	p.publishAsync(domain.LedgerEventMovementCreated, strconv.FormatInt(movement.AccountNumber, 10), correlationID, domain.MovementEvent{
		MovementID:    movement.ID,
		AccountNumber: movement.AccountNumber,
		Kind:          movement.Kind,
		Amount:        movement.Amount,
		BalanceAfter:  movement.BalanceAfter,
		TransactionID: movement.TransactionID,
		OccurredAt:    time.Now().UTC(),
	})
}

// publishAsync hands the event to the broker on a detached goroutine. The
// routing key doubles as the event type; the partition key is the owning
// entity's identifier so delivered events stay ordered per entity.
func (p *EventPublisher) publishAsync(routingKey, partitionKey, correlationID string, body interface{}) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if p.producer == nil {
			log.Printf("level=warn component=event_publisher msg=\"no producer configured; event dropped\" routing_key=%s partition_key=%s", routingKey, partitionKey)
			p.metrics.RecordEventPublishFailure(ctx, routingKey)
			return
		}

		err := p.producer.Publish(ctx, p.exchange, routingKey, rabbitmq.Message{
			EventType:     routingKey,
			PartitionKey:  partitionKey,
			CorrelationID: correlationID,
			Body:          body,
		})
		if err != nil {
			log.Printf("level=error component=event_publisher msg=\"publish failed; event dropped\" exchange=%s routing_key=%s partition_key=%s err=%v", p.exchange, routingKey, partitionKey, err)
			p.metrics.RecordEventPublishFailure(ctx, routingKey)
			return
		}
		p.metrics.RecordEventPublished(ctx, routingKey)
	}()
}
