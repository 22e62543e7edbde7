package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ajay-arram0101/web-search-agent/internal/observability"
	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// DispatcherConfig configures tool dispatch behavior.
type DispatcherConfig struct {
	// ToolTimeout bounds each individual tool execution.
	// Default: 30s
	ToolTimeout time.Duration
}

// DefaultDispatcherConfig returns the default dispatcher configuration.
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		ToolTimeout: 30 * time.Second,
	}
}

// Dispatcher executes one turn's tool calls concurrently and correlates each
// result back to its originating call. A failing call produces an error
// result; it never aborts sibling calls already in flight.
type Dispatcher struct {
	registry *Registry
	config   *DispatcherConfig
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher over the given registry. Nil config,
// logger, and metrics fall back to defaults (metrics to a no-op).
func NewDispatcher(registry *Registry, config *DispatcherConfig, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if config == nil {
		config = DefaultDispatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch runs all calls concurrently and returns their results in the same
// order the calls were issued, regardless of completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	if len(calls) == 0 {
		return nil
	}

	results := make([]models.ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc models.ToolCall) {
			defer wg.Done()
			results[idx] = d.dispatchOne(ctx, tc)
		}(i, call)
	}

	wg.Wait()
	return results
}

// dispatchOne executes a single call with timeout and panic recovery.
func (d *Dispatcher) dispatchOne(ctx context.Context, call models.ToolCall) models.ToolResult {
	start := time.Now()
	content, err := d.execute(ctx, call)

	status := "success"
	if err != nil {
		status = "error"
	}
	if d.metrics != nil {
		d.metrics.ToolExecutions.WithLabelValues(call.Name, status).Inc()
		d.metrics.ToolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		toolErr := &ToolError{ToolName: call.Name, ToolCallID: call.ID, Cause: err}
		d.logger.Warn("tool execution failed",
			"tool", call.Name,
			"tool_call_id", call.ID,
			"error", err)
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    toolErr.Error(),
			IsError:    true,
		}
	}

	return models.ToolResult{
		ToolCallID: call.ID,
		Content:    content,
	}
}

func (d *Dispatcher) execute(ctx context.Context, call models.ToolCall) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, d.config.ToolTimeout)
	defer cancel()

	type execResult struct {
		content string
		err     error
	}
	resultCh := make(chan execResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- execResult{err: fmt.Errorf("%w: %v\n%s", ErrToolPanic, r, debug.Stack())}
			}
		}()
		content, err := d.registry.Execute(execCtx, call.Name, call.Arguments)
		resultCh <- execResult{content: content, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.content, res.err
	case <-execCtx.Done():
		return "", fmt.Errorf("tool %s: %w", call.Name, execCtx.Err())
	}
}
