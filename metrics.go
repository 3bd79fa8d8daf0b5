package craftai

import (
	"errors"
	"strconv"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "craftai"

// Values of the result label of the decisions counter.
const (
	resultOK           = "ok"
	resultNullDecision = "null_decision"
	resultInvalidTime  = "invalid_time"
	resultMalformed    = "malformed_tree"
	resultError        = "error"
)

/*
Metrics holds the Prometheus metrics of an Interpreter. All operations are
safe for concurrent use.
*/
type Metrics struct {
	// Decisions counts decision requests by major version of the tree and
	// result.
	Decisions *prometheus.CounterVec
	// Duration measures how long decision requests take.
	Duration prometheus.Histogram
	// AggregatedLeaves measures how many leaves aggregated decisions merge.
	AggregatedLeaves prometheus.Histogram
}

/*
NewMetrics creates the metrics of an Interpreter and registers them on the
given registerer. An error is returned if any of them cannot be registered.
*/
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "decisions_total",
				Help:      "Total number of decision requests by tree version and result",
			},
			[]string{"version", "result"},
		),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "decision_duration_seconds",
			Help:      "Duration of decision requests in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		AggregatedLeaves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "aggregated_leaves",
			Help:      "Number of leaves merged by aggregated decisions",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.Decisions, m.Duration, m.AggregatedLeaves} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(t *tree.Tree, result *tree.Result, err error, seconds float64) {
	if m == nil {
		return
	}
	version := "unknown"
	if t != nil {
		version = strconv.Itoa(t.Major())
	}
	m.Decisions.WithLabelValues(version, resultLabel(err)).Inc()
	m.Duration.Observe(seconds)
	if result == nil {
		return
	}
	for _, d := range result.Output {
		if d.Aggregated() {
			m.AggregatedLeaves.Observe(float64(d.AggregatedLeaves))
		}
	}
}

func resultLabel(err error) string {
	var (
		ndErr *tree.NullDecisionError
		itErr *clock.InvalidTimeError
		mtErr *tree.MalformedTreeError
	)
	switch {
	case err == nil:
		return resultOK
	case errors.As(err, &ndErr):
		return resultNullDecision
	case errors.As(err, &itErr):
		return resultInvalidTime
	case errors.As(err, &mtErr):
		return resultMalformed
	default:
		return resultError
	}
}
