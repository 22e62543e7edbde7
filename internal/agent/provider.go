package agent

import (
	"context"

	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// Provider is the model-call backend. Stream issues one model turn and
// returns a channel of incremental deltas; the channel closes when the model
// signals end-of-turn. A provider failure after the stream has started is
// delivered as a delta with Err set, followed by channel close, so the
// consumer never blocks on a dead producer.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	Stream(ctx context.Context, req *CompletionRequest) (<-chan RawDelta, error)
	Name() string
}

// CompletionRequest is one model turn's worth of context.
type CompletionRequest struct {
	// Model selects the backend model; empty means the provider default.
	Model string

	// System is the operator prompt.
	System string

	// History is the permanent chat history, oldest first.
	History []models.Message

	// Input is the user utterance for the current invocation.
	Input string

	// Scratchpad holds the current invocation's (call, result) pairs.
	Scratchpad []models.Message

	// Tools are the definitions offered to the model. The model is required
	// to select at least one tool per turn.
	Tools []Tool

	// MaxTokens caps the response length; 0 means provider default.
	MaxTokens int
}

// RawDelta is one incremental unit from a model stream, already reduced to
// the single canonical shape at the provider boundary: plain text, a
// tool-call fragment, or a terminal error.
type RawDelta struct {
	// Text is a plain text fragment.
	Text string

	// Tool is a tool-call fragment. A whole call arrives as one fragment
	// with ID, Name, and complete Arguments; a streamed call arrives as an
	// ID/Name fragment followed by argument continuations.
	Tool *ToolCallFragment

	// Err reports a provider failure; the stream closes after it.
	Err error
}
