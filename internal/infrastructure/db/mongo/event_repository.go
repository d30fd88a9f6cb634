package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

const collectionOrderEvents = "order_events"

// EventRepository persists order lifecycle events to the order_events audit
// collection. It implements ports.OrderEventSink.
type EventRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection(collectionOrderEvents), now: time.Now}
}

// Name identifies the sink in logs and metrics.
func (r *EventRepository) Name() string { return "audit" }

// Publish inserts the event. The event id is the document key, so a redelivered
// event is reported as a duplicate and ignored.
func (r *EventRepository) Publish(ctx context.Context, event domain.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := toDecimal128(event.TotalAmount)
	if err != nil {
		return err
	}
	doc := bson.M{
		"_id":          event.ID,
		"type":         string(event.Type),
		"order_id":     event.OrderID,
		"user_id":      event.UserID,
		"actor_id":     event.ActorID,
		"to":           string(event.To),
		"total_amount": total,
		"occurred_at":  event.OccurredAt.UTC(),
		"processed_at": r.now().UTC(),
	}
	if event.From != "" {
		doc["from"] = string(event.From)
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the per-order lookup index.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	return err
}
