package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository implements ports.OrderRepository using MongoDB.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

type mongoOrderItem struct {
	ProductID   string               `bson:"product_id"`
	ProductName string               `bson:"product_name"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	Quantity    int                  `bson:"quantity"`
	Subtotal    primitive.Decimal128 `bson:"subtotal"`
}

type mongoOrder struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	UserID          string               `bson:"user_id"`
	CustomerName    string               `bson:"customer_name,omitempty"`
	CustomerEmail   string               `bson:"customer_email,omitempty"`
	Items           []mongoOrderItem     `bson:"items"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	Status          string               `bson:"status"`
	OrderDate       time.Time            `bson:"order_date"`
	DeliveryAddress string               `bson:"delivery_address,omitempty"`
	Phone           string               `bson:"phone,omitempty"`
	Notes           string               `bson:"notes,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func newMongoOrder(o *domain.Order) (*mongoOrder, error) {
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]mongoOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		unit, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return nil, err
		}
		sub, err := toDecimal128(it.Subtotal)
		if err != nil {
			return nil, err
		}
		items = append(items, mongoOrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   unit,
			Quantity:    it.Quantity,
			Subtotal:    sub,
		})
	}
	return &mongoOrder{
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		Items:           items,
		TotalAmount:     total,
		Status:          string(o.Status),
		OrderDate:       o.OrderDate.UTC(),
		DeliveryAddress: o.DeliveryAddress,
		Phone:           o.Phone,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}, nil
}

func (mo *mongoOrder) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(mo.Items))
	for _, it := range mo.Items {
		items = append(items, domain.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   fromDecimal128(it.UnitPrice),
			Quantity:    it.Quantity,
			Subtotal:    fromDecimal128(it.Subtotal),
		})
	}
	return &domain.Order{
		ID:              mo.ID.Hex(),
		UserID:          mo.UserID,
		CustomerName:    mo.CustomerName,
		CustomerEmail:   mo.CustomerEmail,
		Items:           items,
		TotalAmount:     fromDecimal128(mo.TotalAmount),
		Status:          domain.OrderStatus(mo.Status),
		OrderDate:       mo.OrderDate.UTC(),
		DeliveryAddress: mo.DeliveryAddress,
		Phone:           mo.Phone,
		Notes:           mo.Notes,
		CreatedAt:       mo.CreatedAt.UTC(),
		UpdatedAt:       mo.UpdatedAt.UTC(),
	}
}

// Create inserts a new order document and sets o.ID.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := newMongoOrder(o)
	if err != nil {
		return err
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid.Hex()
	}
	return nil
}

// FindByID retrieves an order. Malformed ids are reported as not found.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}

	var mo mongoOrder
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mo); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return mo.toDomain(), nil
}

// List returns one page of orders, newest first, plus the total match count.
func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}
	return orders, total, nil
}

// UpdateStatusIf is a compare-and-set on the status field: the filter only
// matches while the stored status equals from.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, domain.ErrOrderNotFound
	}

	filter := bson.M{"_id": oid, "status": string(from)}
	update := bson.M{"$set": bson.M{"status": string(to), "updated_at": at.UTC()}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	return res.ModifiedCount, nil
}

type statusGroup struct {
	Status string               `bson:"_id"`
	Count  int64                `bson:"count"`
	Total  primitive.Decimal128 `bson:"total_amount"`
}

// Stats groups orders by status. Revenue counts delivered orders only.
func (r *OrderRepository) Stats(ctx context.Context) (*domain.OrderStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_amount", Value: bson.D{{Key: "$sum", Value: "$total_amount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate order stats: %w", err)
	}
	defer cur.Close(ctx)

	var groups []statusGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode order stats: %w", err)
	}
	return summarize(groups), nil
}

func summarize(groups []statusGroup) *domain.OrderStats {
	stats := &domain.OrderStats{
		ByStatus:     make([]domain.OrderStatusStat, 0, len(groups)),
		TotalRevenue: decimal.Zero,
	}
	for _, g := range groups {
		amount := fromDecimal128(g.Total)
		stats.ByStatus = append(stats.ByStatus, domain.OrderStatusStat{
			Status:      domain.OrderStatus(g.Status),
			Count:       g.Count,
			TotalAmount: amount,
		})
		stats.TotalOrders += g.Count
		if domain.OrderStatus(g.Status) == domain.StatusDelivered {
			stats.TotalRevenue = stats.TotalRevenue.Add(amount)
		}
	}
	return stats
}

// EnsureIndexes creates the indexes backing owner listings and status filters.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
