// Package openai implements the agent.Provider interface on OpenAI's chat
// completions API.
//
// The provider handles:
//   - Converting history and scratchpad messages to OpenAI's API format
//   - Streaming responses with incremental tool-call delivery
//   - Retry with linear backoff for transient failures
//
// Tool calls stream incrementally: the first chunk for a call carries its ID
// and function name, subsequent chunks carry argument fragments. The provider
// forwards each fragment as-is; assembling complete calls is the caller's job.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ajay-arram0101/web-search-agent/internal/agent"
	"github.com/ajay-arram0101/web-search-agent/internal/observability"
	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// Provider implements agent.Provider for OpenAI's GPT models.
//
// Provider is safe for concurrent use. Each Stream call creates an
// independent stream and goroutine.
type Provider struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithMetrics sets the provider metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Provider) { p.metrics = metrics }
}

// WithRetry overrides the retry policy. Attempts <= 0 disables retries.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(p *Provider) {
		p.maxRetries = attempts
		p.retryDelay = delay
	}
}

// New creates a provider with the given API key. An empty key is allowed for
// delayed configuration; Stream returns an error until a key is set.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default(),
	}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier used for routing and logging.
func (p *Provider) Name() string {
	return "openai"
}

// Stream issues one model turn and returns a channel of incremental deltas.
// The channel closes when the model signals end-of-turn; a mid-stream failure
// arrives as a delta with Err set followed by close.
func (p *Provider) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.RawDelta, error) {
	if p.client == nil {
		return nil, errors.New("openai API key not configured")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: p.convertMessages(req),
		Stream:   true,
		// zero value is treated as unset, this is the smallest
		// representable non-zero temperature
		Temperature: math.SmallestNonzeroFloat32,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
		chatReq.ToolChoice = "required"
	}

	start := time.Now()
	stream, err := p.openStream(ctx, chatReq)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordModelRequest(p.Name(), req.Model, "error", time.Since(start).Seconds())
		}
		return nil, err
	}

	deltas := make(chan agent.RawDelta)
	go p.processStream(ctx, stream, req.Model, start, deltas)
	return deltas, nil
}

// openStream opens the completion stream, retrying transient failures with
// linear backoff.
func (p *Provider) openStream(ctx context.Context, chatReq openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	var lastErr error
	attempts := p.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying model request",
				"attempt", attempt,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
		if err == nil {
			return stream, nil
		}
		if !isRetryable(err) {
			return nil, fmt.Errorf("non-retryable error: %w", err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (p *Provider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, model string, start time.Time, deltas chan<- agent.RawDelta) {
	defer close(deltas)
	defer stream.Close()

	status := "success"
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordModelRequest(p.Name(), model, status, time.Since(start).Seconds())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			status = "error"
			deltas <- agent.RawDelta{Err: ctx.Err()}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			status = "error"
			deltas <- agent.RawDelta{Err: err}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta

		if delta.Content != "" {
			if p.metrics != nil {
				p.metrics.TokensStreamed.WithLabelValues(p.Name(), model).Inc()
			}
			deltas <- agent.RawDelta{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			if p.metrics != nil {
				p.metrics.TokensStreamed.WithLabelValues(p.Name(), model).Inc()
			}
			deltas <- agent.RawDelta{Tool: &agent.ToolCallFragment{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}}
		}
	}
}

// convertMessages flattens system prompt, history, current input, and
// scratchpad into OpenAI's message array. Tool results each become a
// separate message with role "tool".
func (p *Provider) convertMessages(req *agent.CompletionRequest) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.History)+len(req.Scratchpad)+2)

	if req.System != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.History {
		result = append(result, p.convertMessage(msg)...)
	}

	result = append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	})

	for _, msg := range req.Scratchpad {
		result = append(result, p.convertMessage(msg)...)
	}

	return result
}

func (p *Provider) convertMessage(msg models.Message) []openai.ChatCompletionMessage {
	switch msg.Role {
	case models.RoleAssistant:
		oaiMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: msg.Content,
		}
		if len(msg.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}
		return []openai.ChatCompletionMessage{oaiMsg}

	case models.RoleTool:
		out := make([]openai.ChatCompletionMessage, 0, len(msg.ToolResults))
		for _, tr := range msg.ToolResults {
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
			})
		}
		return out

	default:
		return []openai.ChatCompletionMessage{{
			Role:    string(msg.Role),
			Content: msg.Content,
		}}
	}
}

// convertTools converts tool definitions to OpenAI's function format. A tool
// whose schema fails to parse degrades to an empty object schema so it cannot
// break function calling for the rest.
func (p *Provider) convertTools(tools []agent.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Schema(), &schemaMap); err != nil {
			p.logger.Warn("invalid tool schema, using empty schema",
				"tool", tool.Name(),
				"error", err)
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  schemaMap,
			},
		}
	}
	return result
}

// isRetryable reports whether an error is worth another attempt: rate
// limits, 5xx responses, and timeouts.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	msg := err.Error()
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded")
}
