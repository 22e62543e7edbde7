// Package math provides the arithmetic tools the agent can call: add,
// subtract, multiply, and exponentiate. They exist mostly so the model has
// cheap deterministic tools to chain before reaching for the web.
package math

import (
	"context"
	"encoding/json"
	"fmt"
	stdmath "math"
	"strconv"
)

const binarySchema = `{
	"type": "object",
	"properties": {
		"x": {"type": "number"},
		"y": {"type": "number"}
	},
	"required": ["x", "y"],
	"additionalProperties": false
}`

type binaryArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BinaryTool is a two-operand arithmetic tool.
type BinaryTool struct {
	name        string
	description string
	apply       func(x, y float64) float64
}

func (t *BinaryTool) Name() string        { return t.name }
func (t *BinaryTool) Description() string { return t.description }

func (t *BinaryTool) Schema() json.RawMessage {
	return json.RawMessage(binarySchema)
}

func (t *BinaryTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in binaryArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	out := t.apply(in.X, in.Y)
	if stdmath.IsInf(out, 0) || stdmath.IsNaN(out) {
		return "", fmt.Errorf("%s(%v, %v) is not a finite number", t.name, in.X, in.Y)
	}
	return strconv.FormatFloat(out, 'f', -1, 64), nil
}

// NewAdd returns the add tool, computing x + y.
func NewAdd() *BinaryTool {
	return &BinaryTool{
		name:        "add",
		description: "Add 'x' and 'y'.",
		apply:       func(x, y float64) float64 { return x + y },
	}
}

// NewSubtract returns the subtract tool, computing y - x.
func NewSubtract() *BinaryTool {
	return &BinaryTool{
		name:        "subtract",
		description: "Subtract 'x' from 'y'.",
		apply:       func(x, y float64) float64 { return y - x },
	}
}

// NewMultiply returns the multiply tool, computing x * y.
func NewMultiply() *BinaryTool {
	return &BinaryTool{
		name:        "multiply",
		description: "Multiply 'x' and 'y'.",
		apply:       func(x, y float64) float64 { return x * y },
	}
}

// NewExponentiate returns the exponentiate tool, computing x raised to y.
func NewExponentiate() *BinaryTool {
	return &BinaryTool{
		name:        "exponentiate",
		description: "Raise 'x' to the power of 'y'.",
		apply:       stdmath.Pow,
	}
}

// All returns every arithmetic tool.
func All() []*BinaryTool {
	return []*BinaryTool{NewAdd(), NewSubtract(), NewMultiply(), NewExponentiate()}
}
