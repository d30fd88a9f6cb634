package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/pkg/metrics"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	maxPage          = 100000
)

// OrderService is the order lifecycle engine. It holds no per-order state;
// every transition is a conditional write against the store.
type OrderService struct {
	orders   ports.OrderRepository
	products ports.ProductRepository
	users    ports.UserRepository
	idem     ports.IdempotencyStore
	events   ports.OrderEventNotifier
	log      zerolog.Logger
	now      func() time.Time
}

var _ ports.OrderService = (*OrderService)(nil)

// OrderOption customises an OrderService.
type OrderOption func(*OrderService)

// WithIdempotencyStore enables Idempotency-Key replay on Create.
func WithIdempotencyStore(store ports.IdempotencyStore) OrderOption {
	return func(s *OrderService) { s.idem = store }
}

// WithEventNotifier publishes lifecycle events after each committed write.
func WithEventNotifier(n ports.OrderEventNotifier) OrderOption {
	return func(s *OrderService) { s.events = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	orders ports.OrderRepository,
	products ports.ProductRepository,
	users ports.UserRepository,
	log zerolog.Logger,
	opts ...OrderOption,
) *OrderService {
	s := &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create resolves the caller, validates every item, resolves prices from the
// catalogue and writes the order with a single insert. Nothing is persisted
// if any item fails. With an idempotency key, the key is reserved before the
// insert so concurrent retries cannot create a second order.
func (s *OrderService) Create(ctx context.Context, caller domain.Caller, in ports.CreateOrderInput) (*domain.Order, error) {
	if err := domain.Authorize(caller, domain.ActionCreateOrder); err != nil {
		return nil, s.reject(err)
	}
	if len(in.Items) == 0 {
		return nil, s.reject(fmt.Errorf("%w: an order needs at least one item", domain.ErrInvalidInput))
	}

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, s.reject(fmt.Errorf("%w: %s", domain.ErrUserNotFound, caller.UserID))
		}
		return nil, domain.Upstream("create order: find user", err)
	}

	idemKey := ""
	created := false
	if k := strings.TrimSpace(in.IdempotencyKey); k != "" && s.idem != nil {
		key := caller.UserID + ":" + k
		existing, reserved, err := s.idem.Reserve(ctx, key)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("idempotency reserve failed, creating anyway")
		case !reserved:
			return s.replay(ctx, caller, existing)
		default:
			idemKey = key
			defer func() {
				if !created {
					s.release(ctx, idemKey)
				}
			}()
		}
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, s.reject(fmt.Errorf("%w: item %d: quantity must be a positive integer", domain.ErrInvalidInput, i))
		}
		product, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return nil, s.reject(fmt.Errorf("%w: %s", domain.ErrProductNotFound, it.ProductID))
			}
			return nil, domain.Upstream("create order: find product", err)
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    it.Quantity,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}

	now := s.now().UTC()
	order := &domain.Order{
		UserID:          caller.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          domain.StatusPending,
		OrderDate:       now,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Notes:           strings.TrimSpace(in.Notes),
		CustomerName:    user.FullName(),
		CustomerEmail:   user.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error().Err(err).Str("user_id", caller.UserID).Msg("failed to create order")
		return nil, domain.Upstream("create order", err)
	}
	created = true

	if idemKey != "" {
		stored, err := s.idem.Remember(ctx, idemKey, order.ID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to store idempotency key")
		case !stored:
			s.log.Warn().Str("order_id", order.ID).Msg("idempotency reservation expired before the order was stored")
		}
	}

	metrics.OrdersCreatedTotal.Inc()
	s.log.Info().
		Str("order_id", order.ID).
		Str("user_id", caller.UserID).
		Str("total", total.StringFixed(2)).
		Int("items", len(items)).
		Msg("order created")

	s.emit(domain.OrderEvent{
		Type:        domain.EventOrderCreated,
		OrderID:     order.ID,
		UserID:      order.UserID,
		ActorID:     caller.UserID,
		To:          order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  now,
	})
	return order, nil
}

// replay answers a create whose key is already held. A key without an order
// id belongs to a create that is still running.
func (s *OrderService) replay(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, s.reject(fmt.Errorf("%w: an order with this idempotency key is still being created", domain.ErrConflict))
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, domain.Upstream("idempotent replay: find order", err)
	}
	if order.UserID != caller.UserID {
		return nil, s.reject(fmt.Errorf("%w: idempotency key already used", domain.ErrConflict))
	}
	s.log.Info().Str("order_id", order.ID).Msg("idempotent replay")
	return order, nil
}

func (s *OrderService) release(ctx context.Context, key string) {
	if err := s.idem.Release(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn().Err(err).Msg("failed to release idempotency key")
	}
}

// Get returns one order. Admins see any order, clients only their own.
func (s *OrderService) Get(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	if !domain.Allows(domain.ActionViewAnyOrder, caller.Role) && !domain.Allows(domain.ActionViewOwnOrders, caller.Role) {
		return nil, s.reject(domain.ErrForbidden)
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeOwned(caller, domain.ActionViewAnyOrder, domain.ActionViewOwnOrders, order.UserID); err != nil {
		return nil, s.reject(err)
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, caller domain.Caller, in ports.ListOrdersInput) (*ports.OrderPage, error) {
	if err := domain.Authorize(caller, domain.ActionViewOwnOrders); err != nil {
		return nil, s.reject(err)
	}
	return s.list(ctx, caller.UserID, in)
}

func (s *OrderService) List(ctx context.Context, caller domain.Caller, in ports.ListOrdersInput) (*ports.OrderPage, error) {
	if err := domain.Authorize(caller, domain.ActionViewAllOrders); err != nil {
		return nil, s.reject(err)
	}
	return s.list(ctx, "", in)
}

func (s *OrderService) list(ctx context.Context, userID string, in ports.ListOrdersInput) (*ports.OrderPage, error) {
	status := domain.OrderStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
	}

	page, limit := normalizePage(in.Page, in.Limit)
	orders, total, err := s.orders.List(ctx, ports.ListOrdersFilter{
		UserID: userID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, domain.Upstream("list orders", err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.OrderPage{
		Items:      orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (s *OrderService) Stats(ctx context.Context, caller domain.Caller) (*domain.OrderStats, error) {
	if err := domain.Authorize(caller, domain.ActionViewOrderStats); err != nil {
		return nil, s.reject(err)
	}
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, domain.Upstream("order stats", err)
	}
	return stats, nil
}

// UpdateStatus moves an order along the lifecycle graph. The write only
// applies while the stored status is still the one that was validated.
func (s *OrderService) UpdateStatus(ctx context.Context, caller domain.Caller, orderID string, target domain.OrderStatus) (int64, error) {
	if err := domain.Authorize(caller, domain.ActionUpdateOrderStatus); err != nil {
		return 0, s.reject(err)
	}
	if !target.Valid() {
		return 0, s.reject(fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, target))
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if !order.Status.CanTransitionTo(target) {
		return 0, s.reject(transitionError(order.Status, target))
	}
	return s.transition(ctx, caller, order, target)
}

// Cancel moves a pending or confirmed order to cancelled. Clients may only
// cancel their own orders; ownership is checked before status.
func (s *OrderService) Cancel(ctx context.Context, caller domain.Caller, orderID string) (int64, error) {
	if !domain.Allows(domain.ActionCancelAnyOrder, caller.Role) && !domain.Allows(domain.ActionCancelOwnOrder, caller.Role) {
		return 0, s.reject(domain.ErrForbidden)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if err := domain.AuthorizeOwned(caller, domain.ActionCancelAnyOrder, domain.ActionCancelOwnOrder, order.UserID); err != nil {
		return 0, s.reject(err)
	}
	if !order.Status.Cancellable() {
		return 0, s.reject(fmt.Errorf("%w: cannot cancel an order in status %s", domain.ErrInvalidTransition, order.Status))
	}
	return s.transition(ctx, caller, order, domain.StatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, caller domain.Caller, order *domain.Order, target domain.OrderStatus) (int64, error) {
	from := order.Status
	now := s.now().UTC()

	modified, err := s.orders.UpdateStatusIf(ctx, order.ID, from, target, now)
	if err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to update order status")
		return 0, domain.Upstream("update order status", err)
	}
	if modified == 0 {
		return 0, s.reject(fmt.Errorf("%w: order %s is no longer %s", domain.ErrConflict, order.ID, from))
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	s.log.Info().
		Str("order_id", order.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor_id", caller.UserID).
		Msg("order status changed")

	s.emit(domain.OrderEvent{
		Type:        domain.EventOrderStatusChanged,
		OrderID:     order.ID,
		UserID:      order.UserID,
		ActorID:     caller.UserID,
		From:        from,
		To:          target,
		TotalAmount: order.TotalAmount,
		OccurredAt:  now,
	})
	return modified, nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, domain.Upstream("find order", err)
	}
	return order, nil
}

func (s *OrderService) emit(ev domain.OrderEvent) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	s.events.Enqueue(ev)
}

// reject counts a refused operation by kind and returns err unchanged.
func (s *OrderService) reject(err error) error {
	metrics.OrderRejectionsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
	return err
}

func transitionError(from, to domain.OrderStatus) error {
	return fmt.Errorf("%w: cannot change order status from %s to %s", domain.ErrInvalidTransition, from, to)
}
