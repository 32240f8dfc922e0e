package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	simulationsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightsim_simulations_total",
		Help: "Total number of simulation batches run",
	}, []string{"strategy"})

	simulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fightsim_simulation_duration_seconds",
		Help:    "Duration of simulation batches",
		Buckets: prometheus.DefBuckets,
	})

	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightsim_predictions_total",
		Help: "Total number of predictions produced, by mode",
	}, []string{"mode"})

	degradedPredictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_predictions_degraded_total",
		Help: "Predictions where the simulator fell back to a neutral probability",
	})

	classifierFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_classifier_failures_total",
		Help: "Total number of failed classifier invocations",
	})

	predictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_prediction_cache_hits_total",
		Help: "Predictions served from the Redis cache",
	})
)
