package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AI call metrics
	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_ai_calls_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "action", "status"}, // status: success|error
	)

	AILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_ai_latency_seconds",
			Help:    "AI provider call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "action"},
	)

	AITokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_ai_tokens_total",
			Help: "Total tokens consumed by AI calls",
		},
		[]string{"provider", "action", "type"}, // type: input|output
	)

	AICost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_ai_cost_usd",
			Help: "Total AI cost in USD",
		},
		[]string{"provider", "model"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AICalls)
	prometheus.MustRegister(AILatency)
	prometheus.MustRegister(AITokens)
	prometheus.MustRegister(AICost)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)

	prometheus.MustRegister(DBQueries)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAICall records one provider call with its latency and outcome.
func RecordAICall(provider, action string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AICalls.WithLabelValues(provider, action, status).Inc()
	AILatency.WithLabelValues(provider, action).Observe(latency.Seconds())
}

// RecordAIUsage records token consumption and cost for a billed call.
func RecordAIUsage(provider, action, model string, inputTokens, outputTokens int64, costUSD float64) {
	if inputTokens > 0 {
		AITokens.WithLabelValues(provider, action, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		AITokens.WithLabelValues(provider, action, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		AICost.WithLabelValues(provider, model).Add(costUSD)
	}
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// RecordDBQuery records a ledger query outcome.
func RecordDBQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueries.WithLabelValues(operation, status).Inc()
}
