package ports

import (
	"context"
	"time"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// ListOrdersFilter carries the query parameters for listing orders.
type ListOrdersFilter struct {
	UserID string             // empty = all owners (admin)
	Status domain.OrderStatus // optional
	Page   int                // 1-based
	Limit  int
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create inserts the order and sets its ID.
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns a page of orders, newest first, and the total match count.
	List(ctx context.Context, filter ListOrdersFilter) ([]*domain.Order, int64, error)
	// UpdateStatusIf sets status to `to` only while the stored status still
	// equals `from`. It returns the number of modified documents (0 or 1).
	UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (int64, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

// ProductRepository is the authoritative source of product prices.
type ProductRepository interface {
	// FindByID returns domain.ErrProductNotFound when the id does not resolve.
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// IdempotencyStore lets a single create run per client-supplied key and
// remembers which order it produced.
type IdempotencyStore interface {
	// Reserve claims key. When the key is already held, existing is the order
	// id stored under it, or "" while the holder has not finished.
	Reserve(ctx context.Context, key string) (existing string, reserved bool, err error)
	// Remember replaces the reservation with orderID. stored is false when
	// the reservation no longer exists.
	Remember(ctx context.Context, key, orderID string) (stored bool, err error)
	// Release drops a reservation whose create failed.
	Release(ctx context.Context, key string) error
}
