package agent

import (
	"context"
	"encoding/json"
)

// TerminatingTool is the name of the distinguished tool whose selection ends
// the agent loop.
const TerminatingTool = "final_answer"

// FinalAnswer is the parsed arguments of the terminating tool.
type FinalAnswer struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
}

// FinalAnswerTool is the terminating tool. It exists purely as a protocol
// signal: its Execute is an identity transform over its arguments.
type FinalAnswerTool struct{}

// Name implements Tool.
func (FinalAnswerTool) Name() string { return TerminatingTool }

// Description implements Tool.
func (FinalAnswerTool) Description() string {
	return "Use this tool to provide a final answer to the user."
}

// Schema implements Tool.
func (FinalAnswerTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"answer": {"type": "string", "description": "The final answer"},
			"tools_used": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Names of the tools used to reach the answer"
			}
		},
		"required": ["answer", "tools_used"]
	}`)
}

// Execute implements Tool. The arguments pass through unchanged.
func (FinalAnswerTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	return string(args), nil
}
