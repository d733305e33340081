package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
)

// MetricsNamespace prefixes every Prometheus series exposed by the API
const MetricsNamespace = "sales_api"

// NewPrometheusRegistry returns a registry preloaded with Go runtime and process collectors.
func NewPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func PrometheusHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// HTTPMetrics groups Prometheus collectors for HTTP traffic.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics creates and registers the HTTP collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	reg.MustRegister(m.ReqTotal, m.ReqDur, m.InFlight)
	return m
}

// Middleware records every request under its route template.
// Requests that match no route are grouped as "unmatched".
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.ReqTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.ReqDur.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// SaleMetrics turns sale events into Prometheus series. It is registered on
// the event bus as a catch-all handler for sale events.
type SaleMetrics struct {
	Events       *prometheus.CounterVec
	Amount       prometheus.Histogram
	ItemsPerSale prometheus.Histogram
	ItemChanges  *prometheus.CounterVec
}

// NewSaleMetrics creates and registers the sale collectors on reg.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	m := &SaleMetrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "sale_events_total",
			Help:      "Count of published sale events by type.",
		}, []string{"type"}),
		Amount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "sale_total_amount",
			Help:      "Distribution of sale totals at creation.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		ItemsPerSale: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "sale_items",
			Help:      "Number of lines on newly created sales.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		ItemChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "sale_item_changes_total",
			Help:      "Lines added, updated or removed by sale updates.",
		}, []string{"change"}),
	}
	reg.MustRegister(m.Events, m.Amount, m.ItemsPerSale, m.ItemChanges)
	return m
}

// EventTypes implements shared.EventHandler.
func (m *SaleMetrics) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCreated,
		sales.EventTypeSaleModified,
		sales.EventTypeSaleCancelled,
		sales.EventTypeSaleDeleted,
	}
}

// Handle implements shared.EventHandler.
func (m *SaleMetrics) Handle(_ context.Context, event shared.DomainEvent) error {
	m.Events.WithLabelValues(event.EventType()).Inc()

	switch e := event.(type) {
	case *sales.SaleCreatedEvent:
		amount, _ := e.TotalAmount.Float64()
		m.Amount.Observe(amount)
		m.ItemsPerSale.Observe(float64(e.ItemCount))
	case *sales.SaleModifiedEvent:
		m.ItemChanges.WithLabelValues("added").Add(float64(len(e.Changes.Added)))
		m.ItemChanges.WithLabelValues("updated").Add(float64(len(e.Changes.Updated)))
		m.ItemChanges.WithLabelValues("removed").Add(float64(len(e.Changes.Removed)))
	}
	return nil
}
