package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	nodeVisits   *prometheus.CounterVec
	nodeOutcomes *prometheus.CounterVec
	steps        *prometheus.CounterVec
	stepDuration prometheus.Histogram
	transitions  prometheus.Histogram
	warnings     *prometheus.CounterVec
	sendFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"flow_id", "node_kind"}),
		nodeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_node_outcomes_total",
			Help: "Node executions by outcome",
		}, []string{"node_kind", "outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_steps_total",
			Help: "Interpreter steps by result",
		}, []string{"result"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comanda_step_duration_seconds",
			Help:    "Duration of interpreter steps",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		transitions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comanda_step_transitions",
			Help:    "Automatic transitions taken per step",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_authoring_warnings_total",
			Help: "Flow authoring issues detected at compile or run time",
		}, []string{"flow_id", "warning"}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_outbound_failures_total",
			Help: "Outbound messages the transport failed to deliver",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.nodeVisits, m.nodeOutcomes, m.steps, m.stepDuration, m.transitions, m.warnings, m.sendFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.FlowID, string(e.NodeKind)).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeOutcomes.WithLabelValues(string(e.NodeKind), e.Outcome).Inc()
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.steps.WithLabelValues(result).Inc()
			m.stepDuration.Observe(e.Duration.Seconds())
			m.transitions.Observe(float64(e.Transitions))
		},
		OnWarning: func(ctx context.Context, w domain.Warning) {
			m.warnings.WithLabelValues(w.FlowID, w.Code).Inc()
		},
		OnSendError: func(ctx context.Context, to string, err error) {
			m.sendFailures.Inc()
		},
	}
}
