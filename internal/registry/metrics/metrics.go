package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry.
type Metrics struct {
	ManufacturersRegistered prometheus.Counter
	ManufacturersVerified   prometheus.Counter
	AdminTransfers          prometheus.Counter
	Denied                  *prometheus.CounterVec
	Outcomes                *prometheus.CounterVec
	OperationDuration       *prometheus.HistogramVec
	Manufacturers           *prometheus.GaugeVec
}

// New creates the registry metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ManufacturersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "mfgverify_manufacturers_registered_total",
			Help: "Total number of manufacturers registered",
		}),
		ManufacturersVerified: f.NewCounter(prometheus.CounterOpts{
			Name: "mfgverify_manufacturers_verified_total",
			Help: "Total number of first-time manufacturer verifications",
		}),
		AdminTransfers: f.NewCounter(prometheus.CounterOpts{
			Name: "mfgverify_admin_transfers_total",
			Help: "Total number of administrator hand-overs",
		}),
		Denied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mfgverify_admin_denied_total",
			Help: "Admin-only operations rejected because the caller is not the admin",
		}, []string{"operation"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mfgverify_operations_total",
			Help: "Registry operations by outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mfgverify_operation_duration_seconds",
			Help:    "Duration of registry operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"operation"}),
		Manufacturers: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mfgverify_manufacturers",
			Help: "Registered manufacturers by verification state",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	m.ManufacturersRegistered.Inc()
}

func (m *Metrics) IncrementVerified() {
	m.ManufacturersVerified.Inc()
}

func (m *Metrics) IncrementAdminTransfers() {
	m.AdminTransfers.Inc()
}

func (m *Metrics) IncrementDenied(operation string) {
	m.Denied.WithLabelValues(operation).Inc()
}

// ObserveOperation records the outcome and duration of an operation.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetCounts publishes the current registry size.
func (m *Metrics) SetCounts(total, verified int) {
	m.Manufacturers.WithLabelValues("verified").Set(float64(verified))
	m.Manufacturers.WithLabelValues("unverified").Set(float64(total - verified))
}
