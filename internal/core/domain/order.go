package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
// delivered and cancelled are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// cancellable lists the states from which an owner may cancel.
var cancellable = map[OrderStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

// Statuses returns every order status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}
}

// Valid reports whether s is one of the six known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(validTransitions[s]) == 0
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return cancellable[s]
}

// OrderItem is a product line snapshotted at checkout time.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the core aggregate root.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"order_date"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderStatusStat aggregates orders sharing one status.
type OrderStatusStat struct {
	Status      OrderStatus     `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStats is the admin dashboard summary.
type OrderStats struct {
	ByStatus     []OrderStatusStat `json:"status_stats"`
	TotalOrders  int64             `json:"total_orders"`
	TotalRevenue decimal.Decimal   `json:"total_revenue"`
}
