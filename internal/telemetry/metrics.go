/**
 * @description
 * This package provides the OpenTelemetry counters the ledger-service exposes.
 * The fire-and-forget event publisher is intentionally lossy, so systemic
 * publish failure must be visible to operators through counters instead of
 * buried in logs; the movement counters make retry pressure on hot accounts
 * visible the same way.
 *
 * @dependencies
 * - go.opentelemetry.io/otel: Meter acquisition from the global provider.
 * - go.opentelemetry.io/otel/metric: Counter instruments.
 */
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/corebank/ledger-service"

// Metrics bundles the service's counter instruments.
type Metrics struct {
	eventsPublished      metric.Int64Counter
	eventPublishFailures metric.Int64Counter
	movementsApplied     metric.Int64Counter
	movementRetries      metric.Int64Counter
	eventsConsumed       metric.Int64Counter
	staleEventsDropped   metric.Int64Counter
}

// NewMetrics registers the ledger counters on the globally configured meter
// provider. With no provider configured the instruments are no-ops, so callers
// never need to guard recording.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	eventsPublished, err := meter.Int64Counter("ledger.events.published",
		metric.WithDescription("Domain events successfully handed to the broker"))
	if err != nil {
		return nil, err
	}
	eventPublishFailures, err := meter.Int64Counter("ledger.events.publish_failures",
		metric.WithDescription("Domain events dropped because the broker publish failed"))
	if err != nil {
		return nil, err
	}
	movementsApplied, err := meter.Int64Counter("ledger.movements.applied",
		metric.WithDescription("Movements committed to the ledger"))
	if err != nil {
		return nil, err
	}
	movementRetries, err := meter.Int64Counter("ledger.movements.version_retries",
		metric.WithDescription("Optimistic-concurrency retries during movement application"))
	if err != nil {
		return nil, err
	}
	eventsConsumed, err := meter.Int64Counter("ledger.customer_events.consumed",
		metric.WithDescription("Customer lifecycle events applied to the projection"))
	if err != nil {
		return nil, err
	}
	staleEventsDropped, err := meter.Int64Counter("ledger.customer_events.stale_dropped",
		metric.WithDescription("Customer lifecycle events discarded as duplicate or out of order"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsPublished:      eventsPublished,
		eventPublishFailures: eventPublishFailures,
		movementsApplied:     movementsApplied,
		movementRetries:      movementRetries,
		eventsConsumed:       eventsConsumed,
		staleEventsDropped:   staleEventsDropped,
	}, nil
}

func (m *Metrics) RecordEventPublished(ctx context.Context, routingKey string) {
	if m == nil {
		return
	}
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("routing_key", routingKey)))
}

func (m *Metrics) RecordEventPublishFailure(ctx context.Context, routingKey string) {
	if m == nil {
		return
	}
	m.eventPublishFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("routing_key", routingKey)))
}

func (m *Metrics) RecordMovementApplied(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.movementsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordMovementRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.movementRetries.Add(ctx, 1)
}

func (m *Metrics) RecordEventConsumed(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.eventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *Metrics) RecordStaleEventDropped(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.staleEventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
