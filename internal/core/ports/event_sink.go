package ports

import (
	"context"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// OrderEventSink receives committed order lifecycle events (audit store, message bus).
type OrderEventSink interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// OrderEventNotifier hands events to the asynchronous dispatcher. Enqueue must not block.
type OrderEventNotifier interface {
	Enqueue(event domain.OrderEvent)
}
