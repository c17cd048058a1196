// Package monitoring exposes Prometheus metrics and a websocket feed of
// prediction events.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkml_predictions_total",
		Help: "Number of predictions served, by kind.",
	}, []string{"kind"})

	PredictionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkml_prediction_failures_total",
		Help: "Number of failed prediction requests, by kind.",
	}, []string{"kind"})

	PredictionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parkml_prediction_duration_seconds",
		Help:    "Prediction handler latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	ModelLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkml_model_loaded",
		Help: "Whether a model artifact is loaded (1) or not (0), by task.",
	}, []string{"task"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkml_prediction_cache_hits_total",
		Help: "Prediction cache hits.",
	})
)
