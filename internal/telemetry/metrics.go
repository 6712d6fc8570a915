// Package telemetry holds the tracing setup and the Prometheus collectors.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "luxbag",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "orders_placed_total",
		Help:      "Orders created by checkout.",
	})

	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "checkout_failures_total",
		Help:      "Failed checkouts by reason.",
	}, []string{"reason"})

	StockCompensations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "stock_compensations_total",
		Help:      "Stock decrements rolled back after a failed checkout step.",
	})

	ProductCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "product_cache_lookups_total",
		Help:      "Product cache lookups by result.",
	}, []string{"result"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxbag",
		Name:      "order_events_processed_total",
		Help:      "Order events handled by the worker by outcome.",
	}, []string{"outcome"})
)

// NewMetricsServer serves the default registry on its own port.
func NewMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
