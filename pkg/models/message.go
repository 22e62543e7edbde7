// Package models defines the shared wire types for conversation turns,
// tool invocations, and search results.
package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single conversation turn. Once appended to a history or
// scratchpad a Message is never mutated.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}

// UserMessage builds a user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, CreatedAt: time.Now()}
}

// AssistantMessage builds an assistant turn, optionally carrying tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls, CreatedAt: time.Now()}
}

// ToolResultMessage builds a tool turn carrying one result.
func ToolResultMessage(result ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: []ToolResult{result}, CreatedAt: time.Now()}
}

// ToolCall is the model's request to execute a tool. Arguments stream in as
// raw JSON fragments; a call is complete once ID, Name, and a parseable
// Arguments value are all known.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Complete reports whether the call is ready for dispatch.
func (tc ToolCall) Complete() bool {
	if tc.ID == "" || tc.Name == "" {
		return false
	}
	return json.Valid(tc.Arguments)
}

// ToolResult is the output of one tool execution, correlated to its
// originating call by ToolCallID.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}
