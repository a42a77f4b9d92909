package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// catalogMutations counts catalog writes by catalog (events|errors),
	// operation and outcome (ok|invalid|not_found|error).
	catalogMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Catalog create/update/delete operations by outcome.",
		},
		[]string{"catalog", "op", "outcome"},
	)

	// queryResultSize records how many rows each query returned.
	queryResultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_result_size",
			Help:    "Number of items returned by query-layer calls.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"query"},
	)
)

func init() {
	prometheus.MustRegister(catalogMutations, queryResultSize)
}

// outcome classifies err for the catalog_mutations_total label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isKind(err, ErrValidation):
		return "invalid"
	case isKind(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func recordMutation(catalog, op string, err error) {
	catalogMutations.WithLabelValues(catalog, op, outcome(err)).Inc()
}
