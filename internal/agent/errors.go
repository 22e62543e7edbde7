package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors for agent operations
var (
	// ErrNoProvider indicates no model-call provider is configured
	ErrNoProvider = errors.New("no provider configured")

	// ErrToolNotFound indicates a requested tool doesn't exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolPanic indicates a tool panicked during execution
	ErrToolPanic = errors.New("tool panicked")

	// ErrModelCall indicates the provider call failed outright; the
	// invocation terminates rather than hanging the consumer
	ErrModelCall = errors.New("model call failed")
)

// Phase represents a distinct state in the agent loop lifecycle.
type Phase string

const (
	// PhaseIdle is the initial state, before any model call
	PhaseIdle Phase = "idle"

	// PhaseIterating is the model streaming state
	PhaseIterating Phase = "iterating"

	// PhaseToolDispatch is the concurrent tool execution state
	PhaseToolDispatch Phase = "tool_dispatch"

	// PhaseEvaluate is the scratchpad update and termination check state
	PhaseEvaluate Phase = "evaluate"

	// PhaseTerminated is the final state
	PhaseTerminated Phase = "terminated"
)

// LoopError wraps an error with the phase and iteration it occurred in.
type LoopError struct {
	Phase     Phase
	Iteration int
	Cause     error
}

// Error implements the error interface.
func (e *LoopError) Error() string {
	return fmt.Sprintf("agent loop error at %s (iteration %d): %v", e.Phase, e.Iteration, e.Cause)
}

// Unwrap returns the underlying error.
func (e *LoopError) Unwrap() error {
	return e.Cause
}

// ToolError is a structured error from tool execution, correlated to the
// failing call. Tool failures never abort sibling calls; they surface to the
// model as error results so the next turn can react.
type ToolError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString("tool ")
	b.WriteString(e.ToolName)
	if e.ToolCallID != "" {
		fmt.Fprintf(&b, " (call %s)", e.ToolCallID)
	}
	b.WriteString(": ")
	if e.Cause != nil {
		b.WriteString(e.Cause.Error())
	} else {
		b.WriteString("failed")
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Cause
}
