package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the service and environment.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	service := strings.TrimSpace(c.ServiceName)
	if service == "" {
		service = "crm"
	}
	env := strings.TrimSpace(c.Environment)
	if env == "" {
		env = "unknown"
	}
	return prometheus.Labels{"service": service, "env": env}
}

// Metrics exposes business-level counters for the mutation engine and jobs.
type Metrics struct {
	customersCreated *prometheus.CounterVec
	bulkRowErrors    *prometheus.CounterVec
	productsCreated  prometheus.Counter
	ordersCreated    prometheus.Counter
	productsRestock  prometheus.Counter
	heartbeats       *prometheus.CounterVec
}

// New registers the domain counters on the default registry.
func New(cfg Config) *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, cfg)
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	labels := cfg.constLabels()

	m := &Metrics{
		customersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_customers_created_total",
			Help:        "Customers created by mode (single or bulk).",
			ConstLabels: labels,
		}, []string{"mode"}),
		bulkRowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_bulk_customer_row_errors_total",
			Help:        "Rejected bulk customer rows by error code.",
			ConstLabels: labels,
		}, []string{"code"}),
		productsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crm_products_created_total",
			Help:        "Products created.",
			ConstLabels: labels,
		}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crm_orders_created_total",
			Help:        "Orders committed.",
			ConstLabels: labels,
		}),
		productsRestock: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crm_products_restocked_total",
			Help:        "Products whose stock was raised by replenishment.",
			ConstLabels: labels,
		}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_heartbeats_total",
			Help:        "Heartbeat lines written by probe outcome.",
			ConstLabels: labels,
		}, []string{"probe"}),
	}

	registerer.MustRegister(
		m.customersCreated,
		m.bulkRowErrors,
		m.productsCreated,
		m.ordersCreated,
		m.productsRestock,
		m.heartbeats,
	)
	return m
}

// NewForTest registers on a private registry so tests can build many instances.
func NewForTest() *Metrics {
	return newMetrics(prometheus.NewRegistry(), Config{ServiceName: "crm", Environment: "test"})
}

func (m *Metrics) AddCustomersCreated(mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.customersCreated.WithLabelValues(mode).Add(float64(n))
}

func (m *Metrics) IncBulkRowError(code string) {
	if m == nil {
		return
	}
	m.bulkRowErrors.WithLabelValues(strings.TrimSpace(code)).Inc()
}

func (m *Metrics) IncProductCreated() {
	if m == nil {
		return
	}
	m.productsCreated.Inc()
}

func (m *Metrics) IncOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) AddProductsRestocked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.productsRestock.Add(float64(n))
}

// IncHeartbeat counts a heartbeat; probe is one of ok, down, error or skipped.
func (m *Metrics) IncHeartbeat(probe string) {
	if m == nil {
		return
	}
	m.heartbeats.WithLabelValues(probe).Inc()
}
