package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//Namespace is the namespace all metrics of the feature engine are defined under.
const Namespace = "multirel"

//NewCounter creates a counter under the global namespace.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help}, labels)
}

var (
	NodesFitted = NewCounter(
		"nodes_fitted_total",
		"number of tree nodes that searched for a split",
		[]string{},
	).WithLabelValues()

	//CandidatesEvaluated is labeled by the data_used tag of the candidate splits.
	CandidatesEvaluated = NewCounter(
		"candidates_evaluated_total",
		"number of candidate splits scored by the optimization criterion",
		[]string{"data_used"},
	)

	SplitsCommitted = NewCounter(
		"splits_committed_total",
		"number of candidate splits adopted by a node",
		[]string{},
	).WithLabelValues()

	TreesFitted = NewCounter(
		"trees_fitted_total",
		"number of candidate trees fitted",
		[]string{"aggregation"},
	)
)
