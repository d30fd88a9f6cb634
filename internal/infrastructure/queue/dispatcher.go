package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 10 * time.Second
)

// Sink is a named destination for order events.
type Sink interface {
	ports.OrderEventSink
	Name() string
}

// Dispatcher routes order events to a fixed set of workers using consistent
// hashing on the order id, so events of one order are delivered in order.
// Each event is handed to every sink; a failing sink does not stop the others.
type Dispatcher struct {
	workers []chan domain.OrderEvent
	sinks   []Sink
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger, sinks ...Sink) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.OrderEvent, numWorkers),
		sinks:   sinks,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.OrderEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Shutdown closes
// their channels and the remaining events are drained.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its order. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(event.OrderID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "worker queue full")
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.OrderEvent) {
	defer d.wg.Done()
	depth := metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id))

	for event := range ch {
		depth.Set(float64(len(ch)))
		d.deliver(id, event)
	}
	depth.Set(0)
}

func (d *Dispatcher) deliver(workerID int, event domain.OrderEvent) {
	start := time.Now()
	defer func() { metrics.EventPublishDuration.Observe(time.Since(start).Seconds()) }()

	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := sink.Publish(ctx, event)
		cancel()

		if err != nil {
			metrics.EventsPublishedTotal.WithLabelValues(sink.Name(), "error").Inc()
			d.log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("event_id", event.ID).
				Str("order_id", event.OrderID).
				Int("worker_id", workerID).
				Msg("order event delivery failed")
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(sink.Name(), "ok").Inc()
	}
}

func (d *Dispatcher) drop(event domain.OrderEvent, reason string) {
	metrics.EventsPublishedTotal.WithLabelValues("queue", "dropped").Inc()
	d.log.Warn().
		Str("event_id", event.ID).
		Str("order_id", event.OrderID).
		Str("type", string(event.Type)).
		Str("reason", reason).
		Msg("order event dropped")
}
