package agent

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// TurnAccumulator collapses heterogeneous upstream delta shapes into the
// canonical incremental representation and assembles the turn's tool calls.
//
// Tie-break rule: a fragment carrying a nonempty ID or Name starts a new
// pending call; a fragment carrying neither is an argument continuation of
// the most recently started pending call. A continuation with no pending
// call is dropped with a warning.
type TurnAccumulator struct {
	logger  *slog.Logger
	pending []pendingCall
	dropped int
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// NewTurnAccumulator creates an accumulator for one model turn.
// A nil logger falls back to slog.Default.
func NewTurnAccumulator(logger *slog.Logger) *TurnAccumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnAccumulator{logger: logger}
}

// Ingest normalizes one raw delta into zero or one TokenDelta event. The
// boolean is false when the delta was empty or malformed and dropped.
func (a *TurnAccumulator) Ingest(d RawDelta) (Event, bool) {
	if d.Tool != nil {
		frag := *d.Tool
		if frag.ID != "" || frag.Name != "" {
			a.pending = append(a.pending, pendingCall{id: frag.ID, name: frag.Name})
			if frag.Arguments != "" {
				a.appendArgs(frag.Arguments)
			}
		} else if frag.Arguments != "" {
			if len(a.pending) == 0 {
				a.dropped++
				a.logger.Warn("dropping tool-call continuation with no pending call",
					"arguments_len", len(frag.Arguments))
				return Event{}, false
			}
			a.appendArgs(frag.Arguments)
		} else {
			a.dropped++
			a.logger.Warn("dropping empty tool-call fragment")
			return Event{}, false
		}
		return Event{Type: EventTokenDelta, Tool: &frag, Text: d.Text}, true
	}

	if d.Text != "" {
		return Event{Type: EventTokenDelta, Text: d.Text}, true
	}

	return Event{}, false
}

func (a *TurnAccumulator) appendArgs(fragment string) {
	a.pending[len(a.pending)-1].args.WriteString(fragment)
}

// Calls returns the turn's completed tool calls in the order they were
// started. Calls whose id or name never arrived, or whose accumulated
// arguments are not parseable JSON, are dropped with a warning.
func (a *TurnAccumulator) Calls() []models.ToolCall {
	calls := make([]models.ToolCall, 0, len(a.pending))
	for i := range a.pending {
		p := &a.pending[i]
		args := p.args.String()
		if args == "" {
			args = "{}"
		}
		tc := models.ToolCall{
			ID:        p.id,
			Name:      p.name,
			Arguments: json.RawMessage(args),
		}
		if !tc.Complete() {
			a.dropped++
			a.logger.Warn("dropping incomplete tool call",
				"tool_call_id", p.id,
				"tool", p.name)
			continue
		}
		calls = append(calls, tc)
	}
	return calls
}

// Dropped returns how many malformed deltas and incomplete calls were
// discarded during this turn.
func (a *TurnAccumulator) Dropped() int {
	return a.dropped
}
