package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

const ordersNS = "shop.orders"

func dec128(t *testing.T, s string) primitive.Decimal128 {
	t.Helper()
	v, err := primitive.ParseDecimal128(s)
	if err != nil {
		t.Fatalf("parse decimal128 %q: %v", s, err)
	}
	return v
}

func orderDoc(t *testing.T, id primitive.ObjectID, status string) bson.D {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: "u1"},
		{Key: "customer_name", Value: "Ana Lopez"},
		{Key: "items", Value: bson.A{bson.D{
			{Key: "product_id", Value: "p1"},
			{Key: "product_name", Value: "Pupusa"},
			{Key: "unit_price", Value: dec128(t, "1.35")},
			{Key: "quantity", Value: 3},
			{Key: "subtotal", Value: dec128(t, "4.05")},
		}}},
		{Key: "total_amount", Value: dec128(t, "4.05")},
		{Key: "status", Value: status},
		{Key: "order_date", Value: created},
		{Key: "created_at", Value: created},
		{Key: "updated_at", Value: created},
	}
}

func TestOrderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create sets id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewOrderRepository(mt.DB)

		o := &domain.Order{
			UserID:      "u1",
			Items:       []domain.OrderItem{{ProductID: "p1", UnitPrice: decimal.RequireFromString("10"), Quantity: 2, Subtotal: decimal.RequireFromString("20")}},
			TotalAmount: decimal.RequireFromString("20"),
			Status:      domain.StatusPending,
		}
		if err := repo.Create(context.Background(), o); err != nil {
			mt.Fatalf("create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(o.ID); err != nil {
			mt.Fatalf("expected an ObjectID hex id, got %q", o.ID)
		}
	})

	mt.Run("find decodes money exactly", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ordersNS, mtest.FirstBatch, orderDoc(t, id, "pending")))
		repo := NewOrderRepository(mt.DB)

		o, err := repo.FindByID(context.Background(), id.Hex())
		if err != nil {
			mt.Fatalf("find: %v", err)
		}
		if o.ID != id.Hex() || o.Status != domain.StatusPending {
			mt.Fatalf("unexpected order %+v", o)
		}
		if o.TotalAmount.StringFixed(2) != "4.05" || o.Items[0].UnitPrice.StringFixed(2) != "1.35" {
			mt.Fatalf("money not preserved: total=%s unit=%s", o.TotalAmount, o.Items[0].UnitPrice)
		}
	})

	mt.Run("find missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ordersNS, mtest.FirstBatch))
		repo := NewOrderRepository(mt.DB)

		if _, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex()); !errors.Is(err, domain.ErrOrderNotFound) {
			mt.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	mt.Run("find malformed id", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		if _, err := repo.FindByID(context.Background(), "not-hex"); !errors.Is(err, domain.ErrOrderNotFound) {
			mt.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	mt.Run("conditional update applied", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		repo := NewOrderRepository(mt.DB)

		n, err := repo.UpdateStatusIf(context.Background(), primitive.NewObjectID().Hex(), domain.StatusPending, domain.StatusConfirmed, time.Now())
		if err != nil || n != 1 {
			mt.Fatalf("expected 1 modified, got %d (%v)", n, err)
		}
	})

	mt.Run("conditional update lost the race", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		repo := NewOrderRepository(mt.DB)

		n, err := repo.UpdateStatusIf(context.Background(), primitive.NewObjectID().Hex(), domain.StatusPending, domain.StatusCancelled, time.Now())
		if err != nil || n != 0 {
			mt.Fatalf("expected 0 modified, got %d (%v)", n, err)
		}
	})

	mt.Run("list returns page and total", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ordersNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}),
			mtest.CreateCursorResponse(0, ordersNS, mtest.FirstBatch,
				orderDoc(t, primitive.NewObjectID(), "pending"),
				orderDoc(t, primitive.NewObjectID(), "ready"),
			),
		)
		repo := NewOrderRepository(mt.DB)

		orders, total, err := repo.List(context.Background(), ports.ListOrdersFilter{UserID: "u1", Page: 1, Limit: 2})
		if err != nil {
			mt.Fatalf("list: %v", err)
		}
		if total != 3 || len(orders) != 2 {
			mt.Fatalf("expected 2 of 3, got %d of %d", len(orders), total)
		}
	})

	mt.Run("store failure is wrapped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Message: "shutting down"}))
		repo := NewOrderRepository(mt.DB)

		_, err := repo.UpdateStatusIf(context.Background(), primitive.NewObjectID().Hex(), domain.StatusPending, domain.StatusConfirmed, time.Now())
		if err == nil || errors.Is(err, domain.ErrOrderNotFound) {
			mt.Fatalf("expected a store error, got %v", err)
		}
	})

	mt.Run("stats", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ordersNS, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "delivered"}, {Key: "count", Value: int32(2)}, {Key: "total_amount", Value: dec128(t, "30.10")}},
			bson.D{{Key: "_id", Value: "pending"}, {Key: "count", Value: int32(1)}, {Key: "total_amount", Value: dec128(t, "5.00")}},
		))
		repo := NewOrderRepository(mt.DB)

		stats, err := repo.Stats(context.Background())
		if err != nil {
			mt.Fatalf("stats: %v", err)
		}
		if stats.TotalOrders != 3 {
			mt.Errorf("expected 3 orders, got %d", stats.TotalOrders)
		}
		if stats.TotalRevenue.StringFixed(2) != "30.10" {
			mt.Errorf("revenue must count delivered orders only, got %s", stats.TotalRevenue)
		}
		if len(stats.ByStatus) != 2 || stats.ByStatus[1].Status != domain.StatusPending {
			mt.Errorf("unexpected groups %+v", stats.ByStatus)
		}
	})
}
