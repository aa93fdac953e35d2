package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "ingest_total",
			Help:      "Document ingestion runs by outcome",
		},
		[]string{"status"},
	)

	IngestChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "ingest_chunks_total",
			Help:      "Chunks written to the vector index",
		},
	)

	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfchat",
			Name:      "retrieval_duration_seconds",
			Help:      "Time to embed a question and query the vector index",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "answers_total",
			Help:      "Answer turns by final state",
		},
		[]string{"status"},
	)

	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
