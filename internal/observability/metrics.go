package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the dispatch and webhook flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	messagesSentTotal   *prometheus.CounterVec
	messagesFailedTotal *prometheus.CounterVec
	messageSendDuration *prometheus.HistogramVec
	dispatchInflight    *prometheus.GaugeVec
	duplicatesTotal     *prometheus.CounterVec
	webhookEventsTotal  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "courier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Name:      "messages_sent_total",
				Help:      "Total number of messages accepted by the provider.",
			},
			[]string{"kind"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Name:      "messages_failed_total",
				Help:      "Total number of messages that ended in failed state at dispatch.",
			},
			[]string{"kind", "reason"},
		),
		messageSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "courier",
				Name:      "message_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by kind.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		dispatchInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight provider calls grouped by kind.",
			},
			[]string{"kind"},
		),
		duplicatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Name:      "duplicate_dispatches_total",
				Help:      "Total number of confirmation dispatches short-circuited by the idempotency guard.",
			},
			[]string{"kind"},
		),
		webhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Name:      "webhook_events_total",
				Help:      "Provider status callbacks by processing result.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.messageSendDuration,
		m.dispatchInflight,
		m.duplicatesTotal,
		m.webhookEventsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageSent(kind string) {
	if m == nil {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) IncMessageFailed(kind string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(normalizeLabel(kind), reasonLabel).Inc()
}

func (m *Metrics) ObserveMessageSendDuration(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.messageSendDuration.WithLabelValues(normalizeLabel(kind)).Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight(kind string) {
	if m == nil {
		return
	}
	m.dispatchInflight.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) DecDispatchInFlight(kind string) {
	if m == nil {
		return
	}
	m.dispatchInflight.WithLabelValues(normalizeLabel(kind)).Dec()
}

func (m *Metrics) IncDuplicateDispatch(kind string) {
	if m == nil {
		return
	}
	m.duplicatesTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncWebhookEvent records one callback by result: applied, stale,
// terminal_noop, miss, or malformed.
func (m *Metrics) IncWebhookEvent(result string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
