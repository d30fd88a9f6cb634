package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

type recordingSink struct {
	name string
	err  error
	gate chan struct{}

	mu     sync.Mutex
	events []domain.OrderEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, e domain.OrderEvent) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) snapshot() []domain.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderEvent(nil), s.events...)
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	audit := &recordingSink{name: "audit"}
	bus := &recordingSink{name: "kafka", err: errors.New("broker down")}
	d := NewDispatcher(2, zerolog.Nop(), audit, bus)
	d.Start()

	d.Enqueue(domain.OrderEvent{ID: "e1", OrderID: "o1", Type: domain.EventOrderCreated})
	shutdown(t, d)

	if len(audit.snapshot()) != 1 {
		t.Fatalf("audit sink should receive the event even when another sink fails")
	}
	if len(bus.snapshot()) != 1 {
		t.Fatalf("failing sink should still have been attempted")
	}
}

func TestDispatcher_PreservesPerOrderOrdering(t *testing.T) {
	sink := &recordingSink{name: "audit"}
	d := NewDispatcher(4, zerolog.Nop(), sink)
	d.Start()

	statuses := []domain.OrderStatus{
		domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady, domain.StatusDelivered,
	}
	for i := 0; i < 10; i++ {
		orderID := fmt.Sprintf("order-%d", i)
		for _, st := range statuses {
			d.Enqueue(domain.OrderEvent{OrderID: orderID, To: st})
		}
	}
	shutdown(t, d)

	seen := map[string][]domain.OrderStatus{}
	for _, e := range sink.snapshot() {
		seen[e.OrderID] = append(seen[e.OrderID], e.To)
	}
	for orderID, got := range seen {
		for i := range statuses {
			if got[i] != statuses[i] {
				t.Fatalf("%s delivered out of order: %v", orderID, got)
			}
		}
	}
	if len(seen) != 10 {
		t.Fatalf("expected events for 10 orders, got %d", len(seen))
	}
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	sink := &recordingSink{name: "audit", gate: make(chan struct{})}
	d := NewDispatcher(1, zerolog.Nop(), sink)
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+50; i++ {
			d.Enqueue(domain.OrderEvent{OrderID: "o1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full worker queue")
	}

	close(sink.gate)
	shutdown(t, d)

	if n := len(sink.snapshot()); n > channelBuffer+1 {
		t.Fatalf("expected overflow to be dropped, delivered %d", n)
	}
}

func TestDispatcher_EnqueueAfterShutdownIsDropped(t *testing.T) {
	sink := &recordingSink{name: "audit"}
	d := NewDispatcher(1, zerolog.Nop(), sink)
	d.Start()
	shutdown(t, d)

	d.Enqueue(domain.OrderEvent{OrderID: "o1"})
	if len(sink.snapshot()) != 0 {
		t.Fatal("no event may be delivered after shutdown")
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, zerolog.Nop())
	first := d.shardIndex("507f1f77bcf86cd799439011")
	for i := 0; i < 5; i++ {
		if d.shardIndex("507f1f77bcf86cd799439011") != first {
			t.Fatal("shard index must be deterministic")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}
