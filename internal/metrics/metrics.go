// Package metrics exposes Profecia's Prometheus collectors, grounded
// on the perp-dex teacher's singleton Collector shape but scoped to
// prediction-market concerns: orders, matches, resolutions and the
// ledger calls that follow them.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

type Collector struct {
	OrdersPlaced     *prometheus.CounterVec
	OrdersMatched    *prometheus.CounterVec
	OrdersCanceled   *prometheus.CounterVec
	MarketsResolved  *prometheus.CounterVec
	LedgerCallErrors *prometheus.CounterVec
	WSConnections    prometheus.Gauge
}

// GetCollector returns the process-wide singleton collector, creating
// and registering it with the default registry on first use.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{
		OrdersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "profecia",
				Subsystem: "orders",
				Name:      "placed_total",
				Help:      "Total buy orders placed",
			},
			[]string{"market_id", "side"},
		),
		OrdersMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "profecia",
				Subsystem: "orders",
				Name:      "matched_total",
				Help:      "Total orders (partially or fully) matched",
			},
			[]string{"market_id"},
		),
		OrdersCanceled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "profecia",
				Subsystem: "orders",
				Name:      "canceled_total",
				Help:      "Total orders canceled by their owner",
			},
			[]string{"market_id"},
		),
		MarketsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "profecia",
				Subsystem: "markets",
				Name:      "resolved_total",
				Help:      "Total markets resolved, by winning side",
			},
			[]string{"side"},
		),
		LedgerCallErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "profecia",
				Subsystem: "ledger",
				Name:      "call_errors_total",
				Help:      "Total ledger RPC calls that returned an error",
			},
			[]string{"instruction"},
		),
		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "profecia",
				Subsystem: "websocket",
				Name:      "connections_active",
				Help:      "Number of active WebSocket connections",
			},
		),
	}
	prometheus.MustRegister(
		c.OrdersPlaced,
		c.OrdersMatched,
		c.OrdersCanceled,
		c.MarketsResolved,
		c.LedgerCallErrors,
		c.WSConnections,
	)
	return c
}

func (c *Collector) RecordOrderPlaced(marketID, side string) {
	c.OrdersPlaced.WithLabelValues(marketID, side).Inc()
}

func (c *Collector) RecordOrderMatched(marketID string) {
	c.OrdersMatched.WithLabelValues(marketID).Inc()
}

func (c *Collector) RecordOrderCanceled(marketID string) {
	c.OrdersCanceled.WithLabelValues(marketID).Inc()
}

func (c *Collector) RecordMarketResolved(side string) {
	c.MarketsResolved.WithLabelValues(side).Inc()
}

func (c *Collector) RecordLedgerError(instruction string) {
	c.LedgerCallErrors.WithLabelValues(instruction).Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
