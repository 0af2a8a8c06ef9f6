package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa las métricas Prometheus del servicio.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movementsTotal  *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
}

// NewMetrics inicializa el registro y las métricas base.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_http_requests_total",
		Help: "Peticiones HTTP por ruta y código.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_ledger_http_request_duration_seconds",
		Help:    "Duración de las peticiones HTTP por ruta.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Movimientos de stock por tipo y resultado (ok, rejected, error).",
	}, []string{"type", "result"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflict_retries_total",
		Help: "Reintentos por conflicto de concurrencia.",
	}, []string{"type"})
	registry.MustRegister(requests, duration, movements, retries)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movementsTotal:  movements,
		conflictRetries: retries,
	}
}

// Handler devuelve el http.Handler del endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware registra métricas por petición. Usa la ruta registrada, no la URL, para acotar etiquetas.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := "unknown"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveMovement cuenta un movimiento del libro.
func (m *Metrics) ObserveMovement(kind, result string) {
	if m == nil {
		return
	}
	m.movementsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveConflictRetry cuenta un reintento por conflicto.
func (m *Metrics) ObserveConflictRetry(kind string) {
	if m == nil {
		return
	}
	m.conflictRetries.WithLabelValues(kind).Inc()
}
