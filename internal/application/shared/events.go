package shared

import (
	"context"

	"github.com/retail/backend/internal/domain/shared"
)

// EventCollector gathers domain events raised inside a transaction so they can be
// published once it commits.
type EventCollector struct {
	events []shared.DomainEvent
}

// Collect takes the pending events of each aggregate
func (c *EventCollector) Collect(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		if a == nil {
			continue
		}
		c.events = append(c.events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
}

// Add queues standalone events
func (c *EventCollector) Add(events ...shared.DomainEvent) {
	c.events = append(c.events, events...)
}

// Publish sends the collected events; publishing failures are logged by the bus
func (c *EventCollector) Publish(ctx context.Context, publisher shared.EventPublisher) {
	if publisher == nil || len(c.events) == 0 {
		return
	}
	_ = publisher.Publish(ctx, c.events...)
	c.events = nil
}

// Reset drops collected events, used when a transaction is retried or rolled back
func (c *EventCollector) Reset() {
	c.events = nil
}

// Events returns the collected events
func (c *EventCollector) Events() []shared.DomainEvent {
	return c.events
}
