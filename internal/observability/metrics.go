package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Agent run outcomes and end-to-end latency
//   - Model request performance and token streaming volume
//   - Tool execution patterns and latencies
//   - HTTP request rates for the streaming API
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.AgentRuns.WithLabelValues("success").Inc()
type Metrics struct {
	// AgentRuns counts completed agent runs.
	// Labels: status (success|error)
	AgentRuns *prometheus.CounterVec

	// AgentRunDuration measures end-to-end run latency in seconds.
	// Buckets: 0.5s, 1s, 2s, 5s, 10s, 30s, 60s, 120s
	AgentRunDuration prometheus.Histogram

	// ModelRequestDuration measures model API call latency in seconds.
	// Labels: provider, model
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	ModelRequestDuration *prometheus.HistogramVec

	// ModelRequests counts model requests by provider and model.
	// Labels: provider, model, status (success|error)
	ModelRequests *prometheus.CounterVec

	// TokensStreamed counts streamed delta fragments.
	// Labels: provider, model
	TokensStreamed *prometheus.CounterVec

	// DroppedDeltas counts malformed or orphaned deltas discarded during
	// normalization.
	DroppedDeltas prometheus.Counter

	// LoopIterations measures model turns used per agent run.
	LoopIterations prometheus.Histogram

	// ToolExecutions counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutions *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool_name
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s
	ToolDuration *prometheus.HistogramVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequests counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
//
// All metrics are registered with Prometheus's default registry and are
// served by the /metrics endpoint.
func NewMetrics() *Metrics {
	return &Metrics{
		AgentRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchagent_runs_total",
				Help: "Total number of agent runs by status",
			},
			[]string{"status"},
		),

		AgentRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "searchagent_run_duration_seconds",
				Help:    "End-to-end duration of agent runs in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		ModelRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchagent_model_request_duration_seconds",
				Help:    "Duration of model API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		ModelRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchagent_model_requests_total",
				Help: "Total number of model requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		TokensStreamed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchagent_tokens_streamed_total",
				Help: "Total number of streamed delta fragments by provider and model",
			},
			[]string{"provider", "model"},
		),

		DroppedDeltas: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "searchagent_dropped_deltas_total",
				Help: "Total number of malformed or orphaned deltas discarded during normalization",
			},
		),

		LoopIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "searchagent_loop_iterations",
				Help:    "Model turns used per agent run",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
		),

		ToolExecutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchagent_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchagent_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchagent_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchagent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// RecordModelRequest records metrics for a model API request.
func (m *Metrics) RecordModelRequest(provider, model, status string, durationSeconds float64) {
	m.ModelRequests.WithLabelValues(provider, model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordToolExecution records metrics for a tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutions.WithLabelValues(toolName, status).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
