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

const namespace = "appointment_engine"

// Metrics stores Prometheus collectors used by the API and worker processes.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	appointmentsCreatedTotal *prometheus.CounterVec
	appointmentsConfirmed    prometheus.Counter
	countryProcessedTotal    *prometheus.CounterVec
	countryProcessDuration   *prometheus.HistogramVec
	messagesRejectedTotal    *prometheus.CounterVec
	eventsForwardedTotal     *prometheus.CounterVec
	workerInflight           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		appointmentsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "appointments_created_total",
				Help:      "Appointments accepted and routed to a country pipeline.",
			},
			[]string{"country"},
		),
		appointmentsConfirmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "appointments_confirmed_total",
				Help:      "Appointments moved to COMPLETED.",
			},
		),
		countryProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "country_processed_total",
				Help:      "Country request messages processed, by country and result.",
			},
			[]string{"country", "result"},
		),
		countryProcessDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "country_process_duration_seconds",
				Help:      "Regional insert plus event emission time, by country.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"country"},
		),
		messagesRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_rejected_total",
				Help:      "Deliveries sent to a dead-letter queue, by queue and reason.",
			},
			[]string{"queue", "reason"},
		),
		eventsForwardedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_forwarded_total",
				Help:      "Service events forwarded to the outbound webhook, by result.",
			},
			[]string{"result"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_inflight",
				Help:      "Current number of in-flight deliveries grouped by queue.",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.appointmentsCreatedTotal,
		m.appointmentsConfirmed,
		m.countryProcessedTotal,
		m.countryProcessDuration,
		m.messagesRejectedTotal,
		m.eventsForwardedTotal,
		m.workerInflight,
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
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncAppointmentCreated(country string) {
	if m == nil {
		return
	}
	m.appointmentsCreatedTotal.WithLabelValues(normalizeLabel(country)).Inc()
}

func (m *Metrics) IncAppointmentConfirmed() {
	if m == nil {
		return
	}
	m.appointmentsConfirmed.Inc()
}

func (m *Metrics) IncCountryProcessed(country string, result string) {
	if m == nil {
		return
	}
	m.countryProcessedTotal.WithLabelValues(normalizeLabel(country), normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveCountryProcessDuration(country string, duration time.Duration) {
	if m == nil {
		return
	}
	m.countryProcessDuration.WithLabelValues(normalizeLabel(country)).Observe(max(duration.Seconds(), 0))
}

func (m *Metrics) IncMessageRejected(queue string, reason string) {
	if m == nil {
		return
	}
	m.messagesRejectedTotal.WithLabelValues(normalizeLabel(queue), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncEventForwarded(result string) {
	if m == nil {
		return
	}
	m.eventsForwardedTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Inc()
}

func (m *Metrics) DecWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Dec()
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
