package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// OrderItemInput is one requested line: a product reference and a quantity.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput carries everything needed to check out. Prices are never
// taken from the client; they are resolved from the product store.
type CreateOrderInput struct {
	Items           []OrderItemInput
	DeliveryAddress string
	Phone           string
	Notes           string
	IdempotencyKey  string
}

// ListOrdersInput carries paging and filtering for order listings.
type ListOrdersInput struct {
	Status string
	Page   int
	Limit  int
}

// OrderPage is a page of orders with pagination metadata.
type OrderPage struct {
	Items      []*domain.Order
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// OrderService is the order lifecycle engine.
type OrderService interface {
	Create(ctx context.Context, caller domain.Caller, input CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error)
	ListMine(ctx context.Context, caller domain.Caller, input ListOrdersInput) (*OrderPage, error)
	List(ctx context.Context, caller domain.Caller, input ListOrdersInput) (*OrderPage, error)
	Stats(ctx context.Context, caller domain.Caller) (*domain.OrderStats, error)
	UpdateStatus(ctx context.Context, caller domain.Caller, orderID string, target domain.OrderStatus) (int64, error)
	Cancel(ctx context.Context, caller domain.Caller, orderID string) (int64, error)
}

// ProductInput carries catalogue fields for create and update.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
}

// ProductService manages the catalogue consulted at checkout.
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, caller domain.Caller, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, caller domain.Caller, id string, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
}
