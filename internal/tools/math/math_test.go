package math

import (
	"context"
	"encoding/json"
	"testing"
)

func TestBinaryTools(t *testing.T) {
	tests := []struct {
		tool *BinaryTool
		args string
		want string
	}{
		{NewAdd(), `{"x":2,"y":3}`, "5"},
		{NewAdd(), `{"x":-1.5,"y":0.5}`, "-1"},
		{NewSubtract(), `{"x":2,"y":10}`, "8"},
		{NewMultiply(), `{"x":4,"y":2.5}`, "10"},
		{NewExponentiate(), `{"x":2,"y":10}`, "1024"},
		{NewExponentiate(), `{"x":9,"y":0.5}`, "3"},
	}
	for _, tt := range tests {
		got, err := tt.tool.Execute(context.Background(), json.RawMessage(tt.args))
		if err != nil {
			t.Errorf("%s(%s): %v", tt.tool.Name(), tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s(%s) = %q, want %q", tt.tool.Name(), tt.args, got, tt.want)
		}
	}
}

func TestSubtractOrder(t *testing.T) {
	// Subtract computes y minus x, matching its description.
	got, err := NewSubtract().Execute(context.Background(), json.RawMessage(`{"x":3,"y":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != "-2" {
		t.Errorf("subtract(x=3, y=1) = %q, want %q", got, "-2")
	}
}

func TestExecuteRejectsNonFinite(t *testing.T) {
	// 2^10000 overflows float64 to +Inf.
	if _, err := NewExponentiate().Execute(context.Background(), json.RawMessage(`{"x":2,"y":10000}`)); err == nil {
		t.Error("expected error for non-finite result")
	}
}

func TestExecuteRejectsMalformedArgs(t *testing.T) {
	for _, args := range []string{`{"x":"two","y":3}`, `not json`} {
		if _, err := NewAdd().Execute(context.Background(), json.RawMessage(args)); err == nil {
			t.Errorf("expected error for args %q", args)
		}
	}
}

func TestAll(t *testing.T) {
	tools := All()
	if len(tools) != 4 {
		t.Fatalf("All() returned %d tools, want 4", len(tools))
	}
	seen := map[string]bool{}
	for _, tool := range tools {
		if tool.Name() == "" || tool.Description() == "" {
			t.Errorf("tool %q missing metadata", tool.Name())
		}
		if seen[tool.Name()] {
			t.Errorf("duplicate tool name %q", tool.Name())
		}
		seen[tool.Name()] = true
		if !json.Valid(tool.Schema()) {
			t.Errorf("tool %q has invalid schema", tool.Name())
		}
	}
}
