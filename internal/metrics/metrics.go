// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partystacker_purchase_outcomes_total",
			Help: "Purchase attempts by final state and error kind",
		},
		[]string{"state", "kind"},
	)

	verificationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partystacker_verification_decisions_total",
			Help: "Transaction verifier decisions",
		},
		[]string{"decision"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partystacker_tickets_issued_total",
			Help: "Tickets issued per tier",
		},
		[]string{"tier"},
	)

	chainQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partystacker_chain_query_duration_seconds",
			Help:    "Latency of chain status queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	checkins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partystacker_checkins_total",
			Help: "Check-in attempts by result",
		},
		[]string{"result"},
	)

	publishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partystacker_publish_failures_total",
			Help: "Broker publish failures by routing key",
		},
		[]string{"routing_key"},
	)
)

// Purchase records the terminal state of one purchase request.  kind is
// empty for successful or challenge responses.
func Purchase(state, kind string) {
	purchaseOutcomes.WithLabelValues(state, kind).Inc()
}

// Verification records a verifier decision ("accepted", "optimistic",
// "rejected").
func Verification(decision string) {
	verificationDecisions.WithLabelValues(decision).Inc()
}

// TicketIssued counts one newly created ticket.
func TicketIssued(tier string) {
	ticketsIssued.WithLabelValues(tier).Inc()
}

// ChainQuery observes the duration of a chain status request.
func ChainQuery(result string, started time.Time) {
	chainQueryDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
}

// Checkin counts a check-in attempt.
func Checkin(result string) {
	checkins.WithLabelValues(result).Inc()
}

// PublishFailed counts a failed broker publish.
func PublishFailed(routingKey string) {
	publishFailures.WithLabelValues(routingKey).Inc()
}
