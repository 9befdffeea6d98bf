package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	DocumentsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "documents_ingested_total",
			Help:      "Total number of ingested documents",
		},
		[]string{"format", "status"},
	)

	ChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks added to the vector index",
		},
	)

	IndexRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Name:      "index_records",
			Help:      "Current number of records in the vector index",
		},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "answers_total",
			Help:      "Total number of answer requests",
		},
		[]string{"model", "status"},
	)

	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

// RegisterRAGMetrics registers pipeline metrics explicitly (no init()).
func RegisterRAGMetrics() {
	prometheus.MustRegister(
		DocumentsIngestedTotal,
		ChunksIndexedTotal,
		IndexRecords,
		AnswersTotal,
		AnswerDuration,
	)
}
