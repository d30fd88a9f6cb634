// Package metrics defines the custom Prometheus metrics of the order API.
// It is the single source of truth for metric names, labels, and help strings.
//
// All metrics register with the default registry on package init via promauto,
// so /metrics exposes them next to the HTTP request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orders"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts signed tokens.
// Label:
//   - type: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued, by token type.",
	},
	[]string{"type"},
)

// TokenVerificationsTotal counts verification outcomes.
// Labels:
//   - type: the expected token type
//   - result: "ok", "expired", "malformed" or "wrong_type"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of token verifications, by expected type and result.",
	},
	[]string{"type", "result"},
)

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrdersCreatedTotal counts newly created orders.
var OrdersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders created.",
	},
)

// OrderTransitionsTotal counts applied status transitions.
// Labels:
//   - from, to: order statuses
var OrderTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of order status transitions applied.",
	},
	[]string{"from", "to"},
)

// OrderRejectionsTotal counts order operations refused by the engine.
// Label:
//   - reason: error kind (e.g. "forbidden", "invalid_transition", "conflict")
var OrderRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_rejections_total",
		Help:      "Total number of order operations rejected, by reason.",
	},
	[]string{"reason"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsQueueDepth tracks the number of events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of order events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventsPublishedTotal counts sink deliveries.
// Labels:
//   - sink: sink name ("audit", "kafka")
//   - result: "ok", "error" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of order events delivered to sinks, by sink and result.",
	},
	[]string{"sink", "result"},
)

// EventPublishDuration measures how long delivering one event to all sinks takes.
var EventPublishDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Duration of order event delivery from dequeue to the last sink.",
		Buckets:   prometheus.DefBuckets,
	},
)
