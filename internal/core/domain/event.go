package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEventType names a lifecycle event.
type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order.created"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent records a committed change to an order. It is emitted after the
// write succeeds and is consumed asynchronously (audit trail, message bus).
type OrderEvent struct {
	ID          string
	Type        OrderEventType
	OrderID     string
	UserID      string
	ActorID     string
	From        OrderStatus // empty for order.created
	To          OrderStatus
	TotalAmount decimal.Decimal
	OccurredAt  time.Time
}
