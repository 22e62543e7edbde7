package agent

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// mockTool implements Tool for testing
type mockTool struct {
	name        string
	description string
	schema      json.RawMessage
	execFunc    func(ctx context.Context, args json.RawMessage) (string, error)
	execCount   atomic.Int32
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return m.description }

func (m *mockTool) Schema() json.RawMessage {
	if m.schema != nil {
		return m.schema
	}
	return json.RawMessage(`{"type":"object"}`)
}

func (m *mockTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	m.execCount.Add(1)
	if m.execFunc != nil {
		return m.execFunc(ctx, args)
	}
	return "success", nil
}

// scriptedProvider implements Provider, replaying one delta script per turn.
type scriptedProvider struct {
	turns [][]RawDelta
	calls atomic.Int32
	err   error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan RawDelta, error) {
	if p.err != nil {
		return nil, p.err
	}
	turn := int(p.calls.Add(1)) - 1

	ch := make(chan RawDelta)
	go func() {
		defer close(ch)
		if turn >= len(p.turns) {
			return
		}
		for _, d := range p.turns[turn] {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// callDelta builds a whole-call fragment in one delta.
func callDelta(id, name, args string) RawDelta {
	return RawDelta{Tool: &ToolCallFragment{ID: id, Name: name, Arguments: args}}
}

// argsDelta builds an argument continuation fragment.
func argsDelta(args string) RawDelta {
	return RawDelta{Tool: &ToolCallFragment{Arguments: args}}
}

// collectEvents drains the bridge and returns everything it produced.
func collectEvents(ctx context.Context, bridge *Bridge) []Event {
	var events []Event
	for {
		ev, ok := bridge.Next(ctx)
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}
