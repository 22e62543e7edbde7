package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	// promauto registers against the default registry, so construct once.
	m := NewMetrics()

	m.AgentRuns.WithLabelValues("success").Inc()
	m.RecordModelRequest("openai", "gpt-4o-mini", "success", 0.25)
	m.RecordToolExecution("serpapi", "success", 0.1)
	m.RecordToolExecution("serpapi", "error", 0.05)
	m.RecordHTTPRequest("POST", "/invoke", "200", 0.5)
	m.TokensStreamed.WithLabelValues("openai", "gpt-4o-mini").Add(42)
	m.DroppedDeltas.Add(2)
	m.LoopIterations.Observe(2)

	if got := testutil.ToFloat64(m.AgentRuns.WithLabelValues("success")); got != 1 {
		t.Errorf("agent runs = %v", got)
	}
	if got := testutil.ToFloat64(m.ModelRequests.WithLabelValues("openai", "gpt-4o-mini", "success")); got != 1 {
		t.Errorf("model requests = %v", got)
	}
	if got := testutil.ToFloat64(m.ToolExecutions.WithLabelValues("serpapi", "error")); got != 1 {
		t.Errorf("tool errors = %v", got)
	}
	if got := testutil.ToFloat64(m.TokensStreamed.WithLabelValues("openai", "gpt-4o-mini")); got != 42 {
		t.Errorf("tokens streamed = %v", got)
	}
	if got := testutil.ToFloat64(m.DroppedDeltas); got != 2 {
		t.Errorf("dropped deltas = %v", got)
	}
}
