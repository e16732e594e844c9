package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so services can be built without one in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Webhook metrics
	WebhookReceived         *prometheus.CounterVec
	WebhookDeliveryAttempts *prometheus.CounterVec
	PublisherDropped        prometheus.Counter

	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	RateLimitHits   prometheus.Counter
	APIKeyCache     *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		WebhookReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_received_total",
				Help: "Inbound webhooks by classified source and outcome",
			},
			[]string{"source", "outcome"},
		),
		WebhookDeliveryAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_delivery_attempts_total",
				Help: "Outbound webhook delivery attempts by outcome",
			},
			[]string{"outcome"},
		),
		PublisherDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "event_publisher_dropped_total",
				Help: "Internal events dropped because the publisher queue was full or closed",
			},
		),

		GatewayRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_gateway_requests_total",
				Help: "API key gateway decisions by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "api_gateway_rate_limit_hits_total",
				Help: "Requests rejected by the per-key rate limit",
			},
		),
		APIKeyCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_key_cache_lookups_total",
				Help: "API key cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinHandler adapts Handler for a gin route.
func (m *Metrics) GinHandler() gin.HandlerFunc {
	h := m.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware collects per-route HTTP metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordWebhookReceived counts one inbound webhook.
func (m *Metrics) RecordWebhookReceived(source, outcome string) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(source, outcome).Inc()
}

// RecordDeliveryAttempt counts one outbound attempt.
func (m *Metrics) RecordDeliveryAttempt(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.WebhookDeliveryAttempts.WithLabelValues(outcome).Inc()
}

// RecordPublisherDrop counts an event the publisher could not queue.
func (m *Metrics) RecordPublisherDrop() {
	if m == nil {
		return
	}
	m.PublisherDropped.Inc()
}

// RecordGateway counts one gateway decision: ok, unauthorized, forbidden
// or rate_limited.
func (m *Metrics) RecordGateway(outcome string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(outcome).Inc()
	if outcome == "rate_limited" {
		m.RateLimitHits.Inc()
	}
}

// RecordKeyCache counts a cache hit or miss.
func (m *Metrics) RecordKeyCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.APIKeyCache.WithLabelValues(result).Inc()
}
