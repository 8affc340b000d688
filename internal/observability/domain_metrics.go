package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_questions_total",
			Help: "Total number of chat questions answered, by outcome.",
		},
		[]string{"status"},
	)
	questionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlassist_question_duration_seconds",
			Help:    "End-to-end latency of a chat question.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_query_executions_total",
			Help: "Total number of generated SQL executions, by outcome.",
		},
		[]string{"status"},
	)
	queryRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlassist_query_retries_total",
			Help: "Total number of SQL execution retries after transient failures.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlassist_query_duration_seconds",
			Help:    "Latency of generated SQL executions including retries.",
			Buckets: prometheus.DefBuckets,
		},
	)
	llmTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_llm_tokens_total",
			Help: "Total number of LLM tokens, by model and kind (prompt, completion).",
		},
		[]string{"model", "kind"},
	)
	llmCostUSDTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_llm_cost_usd_total",
			Help: "Estimated LLM spend in USD, by model.",
		},
		[]string{"model"},
	)
	chartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_charts_rendered_total",
			Help: "Total number of rendered charts, by chart type.",
		},
		[]string{"type"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlassist_active_database_connections",
			Help: "Number of conversations with an open database connection.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		questionDurationSeconds,
		queryExecutionsTotal,
		queryRetriesTotal,
		queryDurationSeconds,
		llmTokensTotal,
		llmCostUSDTotal,
		chartsRenderedTotal,
		activeConnections,
	)
}

func statusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

func ObserveQuestion(err error, elapsed time.Duration) {
	questionsTotal.WithLabelValues(statusLabel(err)).Inc()
	questionDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveQueryExecution(err error, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(statusLabel(err)).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementQueryRetry() {
	queryRetriesTotal.Inc()
}

func ObserveLLMUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	if promptTokens > 0 {
		llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if costUSD > 0 {
		llmCostUSDTotal.WithLabelValues(model).Add(costUSD)
	}
}

func IncrementChartRendered(chartType string) {
	chartsRenderedTotal.WithLabelValues(chartType).Inc()
}

func SetActiveConnections(n int) {
	if n < 0 {
		n = 0
	}
	activeConnections.Set(float64(n))
}
