package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prediction Prometheus metrics.
var (
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nbserve",
			Name:      "predictions_total",
			Help:      "Total number of predictions by label and status",
		},
		[]string{"label", "status"},
	)

	PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nbserve",
			Name:      "prediction_duration_seconds",
			Help:      "Normalize, vectorize and classify duration in seconds",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
		[]string{"cache"},
	)

	PredictionTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nbserve",
			Name:      "prediction_known_tokens",
			Help:      "Number of in-vocabulary tokens per prediction",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	PredictionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nbserve",
			Name:      "prediction_cache_total",
			Help:      "Prediction cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ModelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nbserve",
			Name:      "model_info",
			Help:      "Loaded model metadata, value is always 1",
		},
		[]string{"kind", "fingerprint", "vocabulary_size"},
	)
)

var predMetricsRegistered bool

// RegisterPredictionMetrics registers Prometheus prediction metrics. Must be called once from main.
func RegisterPredictionMetrics() {
	if predMetricsRegistered {
		return
	}
	prometheus.MustRegister(PredictionsTotal)
	prometheus.MustRegister(PredictionDuration)
	prometheus.MustRegister(PredictionTokens)
	prometheus.MustRegister(PredictionCacheTotal)
	prometheus.MustRegister(ModelInfo)
	predMetricsRegistered = true
}
