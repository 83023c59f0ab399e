package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProcessedTotal prometheus.Counter
	ResultsTotal   *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	RotationsTotal prometheus.Counter
	CooldownsTotal prometheus.Counter
}

// NewMetrics registers the counters against reg. Tests pass a fresh registry
// so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkcheck_links_processed_total",
			Help: "The total number of links processed",
		}),
		ResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_results_total",
			Help: "Classification results by status",
		}, []string{"status"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g. 'navigation', 'session_setup', 'login_locked_out'
		RotationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkcheck_account_rotations_total",
			Help: "The total number of account rotations",
		}),
		CooldownsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkcheck_cooldowns_total",
			Help: "The total number of cooldown windows tripped",
		}),
	}
}

func (m *Metrics) IncProcessed() { m.ProcessedTotal.Inc() }

func (m *Metrics) IncResult(status string) { m.ResultsTotal.WithLabelValues(status).Inc() }

func (m *Metrics) IncError(errorType string) { m.ErrorsTotal.WithLabelValues(errorType).Inc() }

func (m *Metrics) IncRotation() { m.RotationsTotal.Inc() }

func (m *Metrics) IncCooldown() { m.CooldownsTotal.Inc() }
