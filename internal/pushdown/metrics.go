package pushdown

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a container of metrics for a Compiler.
type Metrics struct {
	// registry to collect metrics as a unit.
	reg *prometheus.Registry

	compilationsTotal    *prometheus.CounterVec
	unsupportedTotal     *prometheus.CounterVec
	inconsistenciesTotal prometheus.Counter

	compileSeconds prometheus.Histogram
}

// NewMetrics creates an unregistered set of compiler metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	return &Metrics{
		reg: reg,

		compilationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_compilations_total",
			Help: "Total number of compilations by outcome (fully_pushed, partially_pushed, not_pushed, disabled, error)",
		}, []string{"outcome"}),
		unsupportedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_unsupported_total",
			Help: "Total number of operators left to the host because they could not be translated, by kind",
		}, []string{"kind"}),
		inconsistenciesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pushdown_internal_inconsistencies_total",
			Help: "Total number of alias collisions and other defects that forced an operator back to the host",
		}),

		compileSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "pushdown_compile_seconds",
			Help: "Time spent compiling one plan",

			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: time.Hour,
		}),
	}
}

// Register registers metrics to report to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error { return reg.Register(m.reg) }

// Unregister unregisters metrics from the provided Registerer.
func (m *Metrics) Unregister(reg prometheus.Registerer) { reg.Unregister(m.reg) }
