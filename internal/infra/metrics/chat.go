package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		chatRequests,
		chatLatencyMs,
		streamChunks,
		summarizeRuns,
		sessionsLive,
		transcriptTokens,
	)
}

var (
	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Completion requests by model and outcome (ok/error/cancelled/submit_error).",
		},
		[]string{"model", "outcome"},
	)

	chatLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_latency_ms",
			Help:    "Time from submission to the terminal stream event, in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"model", "outcome"},
	)

	streamChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stream_chunks_total",
			Help: "Partial-text events applied, per model.",
		},
		[]string{"model"},
	)

	summarizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_summarize_runs_total",
			Help: "Summarization passes by kind (topic/memory) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	sessionsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions",
			Help: "Number of sessions in the collection.",
		},
	)

	transcriptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_transcript_tokens",
			Help:    "Token count of a session transcript, sampled at each stat refresh.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12),
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ObserveChatRequest(model, outcome string, latencyMs int64) {
	chatRequests.WithLabelValues(norm(model), outcome).Inc()
	chatLatencyMs.WithLabelValues(norm(model), outcome).Observe(float64(latencyMs))
}

func IncStreamChunks(model string) {
	streamChunks.WithLabelValues(norm(model)).Inc()
}

func ObserveSummarize(kind, outcome string) {
	summarizeRuns.WithLabelValues(kind, outcome).Inc()
}

func SetSessionCount(n int) {
	sessionsLive.Set(float64(n))
}

func ObserveTranscriptTokens(n int) {
	transcriptTokens.Observe(float64(n))
}
