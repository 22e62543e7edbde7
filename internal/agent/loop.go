package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajay-arram0101/web-search-agent/internal/observability"
	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// DefaultSystemPrompt instructs the model to answer through tools and to
// finish every run with the final_answer tool.
const DefaultSystemPrompt = "You're a helpful assistant. When answering a user's question " +
	"you should first use one of the tools provided. After using a " +
	"tool the tool output will be provided back to you. When you have " +
	"all the information you need, you MUST use the final_answer tool " +
	"to provide a final answer to the user. Use tools to answer the " +
	"user's CURRENT question, not previous questions."

// DefaultModel is the model used when config does not specify one.
const DefaultModel = "gpt-4o-mini"

// FallbackAnswer is returned when the iteration budget runs out before the
// model produces a final answer.
const FallbackAnswer = "No answer found"

// Config configures the agent loop.
type Config struct {
	// MaxIterations limits the number of model turns per run.
	// Default: 3
	MaxIterations int

	// Model names the chat model to use.
	// Default: gpt-4o-mini
	Model string

	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string

	// MaxTokens caps each model response (0 = provider default).
	MaxTokens int
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations: 3,
		Model:         DefaultModel,
		SystemPrompt:  DefaultSystemPrompt,
	}
}

func sanitizeConfig(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	cfg := *config
	defaults := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaults.SystemPrompt
	}
	if cfg.MaxTokens < 0 {
		cfg.MaxTokens = 0
	}
	return &cfg
}

// Result is the outcome of one run.
type Result struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
}

// Executor runs the tool-calling loop.
//
// Each iteration streams one model turn, executes the tool calls the turn
// produced, and folds the call/result pairs into the scratchpad. The run
// terminates when a turn invokes final_answer or the iteration budget is
// spent, whichever comes first.
type Executor struct {
	provider   Provider
	registry   *Registry
	dispatcher *Dispatcher
	config     *Config
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// NewExecutor creates an executor over the given provider and registry.
// Nil config, logger, and metrics fall back to defaults.
func NewExecutor(provider Provider, registry *Registry, config *Config, logger *slog.Logger, metrics *observability.Metrics) *Executor {
	config = sanitizeConfig(config)
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		provider:   provider,
		registry:   registry,
		dispatcher: NewDispatcher(registry, nil, logger, metrics),
		config:     config,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("agent"),
	}
}

// Registry returns the executor's tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Invoke runs the loop for one user input and streams progress through the
// bridge. The bridge always receives exactly one terminal event: Done on any
// run that produces a Result (including the fallback), Failed on error.
// Finished turns land in the session history; the scratchpad does not.
func (e *Executor) Invoke(ctx context.Context, session *models.Session, input string, bridge *Bridge) (*Result, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	if session == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if bridge == nil {
		return nil, fmt.Errorf("bridge is nil")
	}

	ctx, span := e.tracer.Start(ctx, "agent.invoke",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("model", e.config.Model),
		))
	defer span.End()
	defer bridge.Close()

	start := time.Now()
	result, err := e.run(ctx, session, input, bridge)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.metrics != nil {
			e.metrics.AgentRuns.WithLabelValues("error").Inc()
		}
		bridge.Publish(Event{Type: EventFailed, Err: err})
		return nil, err
	}

	span.SetAttributes(attribute.StringSlice("tools_used", result.ToolsUsed))
	if e.metrics != nil {
		e.metrics.AgentRuns.WithLabelValues("success").Inc()
		e.metrics.AgentRunDuration.Observe(time.Since(start).Seconds())
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, session *models.Session, input string, bridge *Bridge) (*Result, error) {
	history := session.History()
	var scratchpad []models.Message
	phase := PhaseIdle

	for iteration := 0; iteration < e.config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return nil, &LoopError{Phase: phase, Iteration: iteration, Cause: ctx.Err()}
		default:
		}

		phase = PhaseIterating
		calls, err := e.streamTurn(ctx, history, input, scratchpad, bridge, iteration)
		if err != nil {
			return nil, &LoopError{Phase: phase, Iteration: iteration, Cause: err}
		}

		if len(calls) == 0 {
			// tool_choice forces a call, but the model can still come
			// back empty. The turn is spent either way.
			e.logger.Warn("model turn produced no tool calls", "iteration", iteration)
			bridge.Publish(Event{Type: EventStepBoundary})
			continue
		}

		phase = PhaseToolDispatch
		results := e.dispatcher.Dispatch(ctx, calls)

		// Scratchpad grows pairwise, call then result, in call order.
		for i, call := range calls {
			scratchpad = append(scratchpad,
				models.AssistantMessage("", call),
				models.ToolResultMessage(results[i]),
			)
		}

		phase = PhaseEvaluate
		if answer, ok := e.findFinalAnswer(calls); ok {
			phase = PhaseTerminated
			if e.metrics != nil {
				e.metrics.LoopIterations.Observe(float64(iteration + 1))
			}
			bridge.Publish(Event{Type: EventDone})
			session.Append(
				models.UserMessage(input),
				models.AssistantMessage(answer.Answer),
			)
			return &Result{Answer: answer.Answer, ToolsUsed: answer.ToolsUsed}, nil
		}

		bridge.Publish(Event{Type: EventStepBoundary})
	}

	// Budget spent without a final answer.
	e.logger.Warn("iteration budget exhausted", "max_iterations", e.config.MaxIterations)
	if e.metrics != nil {
		e.metrics.LoopIterations.Observe(float64(e.config.MaxIterations))
	}
	bridge.Publish(Event{Type: EventDone})
	session.Append(
		models.UserMessage(input),
		models.AssistantMessage(FallbackAnswer),
	)
	return &Result{Answer: FallbackAnswer, ToolsUsed: []string{}}, nil
}

// streamTurn runs one model turn, forwarding text deltas to the bridge and
// returning the completed tool calls the turn produced.
func (e *Executor) streamTurn(ctx context.Context, history []models.Message, input string, scratchpad []models.Message, bridge *Bridge, iteration int) ([]models.ToolCall, error) {
	ctx, span := e.tracer.Start(ctx, "agent.turn",
		trace.WithAttributes(attribute.Int("iteration", iteration)))
	defer span.End()

	req := &CompletionRequest{
		Model:      e.config.Model,
		System:     e.config.SystemPrompt,
		History:    history,
		Input:      input,
		Scratchpad: scratchpad,
		Tools:      e.registry.Tools(),
		MaxTokens:  e.config.MaxTokens,
	}

	deltas, err := e.provider.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
	}

	acc := NewTurnAccumulator(e.logger)
	for delta := range deltas {
		if delta.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelCall, delta.Err)
		}
		if ev, ok := acc.Ingest(delta); ok {
			bridge.Publish(ev)
		}
	}

	calls := acc.Calls()
	if dropped := acc.Dropped(); dropped > 0 && e.metrics != nil {
		e.metrics.DroppedDeltas.Add(float64(dropped))
	}
	span.SetAttributes(attribute.Int("tool_calls", len(calls)))
	return calls, nil
}

// findFinalAnswer scans a turn's calls for final_answer and decodes its
// arguments. Only the first terminating call counts.
func (e *Executor) findFinalAnswer(calls []models.ToolCall) (*FinalAnswer, bool) {
	for _, call := range calls {
		if call.Name != TerminatingTool {
			continue
		}
		var fa FinalAnswer
		if err := json.Unmarshal(call.Arguments, &fa); err != nil {
			e.logger.Warn("malformed final_answer arguments",
				"tool_call_id", call.ID,
				"error", err)
			continue
		}
		if fa.ToolsUsed == nil {
			fa.ToolsUsed = []string{}
		}
		return &fa, true
	}
	return nil, false
}
