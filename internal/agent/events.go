package agent

// EventType tags the variants of the canonical stream event.
type EventType string

const (
	// EventTokenDelta carries one incremental unit of model output: a text
	// fragment, a tool-call fragment, or both.
	EventTokenDelta EventType = "token_delta"

	// EventStepBoundary marks that the model finished emitting one turn's
	// worth of tool calls. Emitted once per non-terminating loop iteration.
	EventStepBoundary EventType = "step_boundary"

	// EventDone marks that the invocation has produced its final answer (or
	// exhausted its budget) and no further events will follow.
	EventDone EventType = "done"

	// EventFailed marks a terminal provider failure. Like Done, nothing
	// follows it.
	EventFailed EventType = "failed"
)

// Event is the canonical unit flowing through the stream bridge. Sentinel
// strings never travel in-band; turn and stream termination are explicit
// variants so no model output can collide with them.
type Event struct {
	Type EventType

	// Text is the plain text fragment of a TokenDelta, if any.
	Text string

	// Tool is the tool-call fragment of a TokenDelta, if any.
	Tool *ToolCallFragment

	// Err is set on Failed events only.
	Err error
}

// ToolCallFragment is one canonical incremental piece of a tool call. A
// fragment carrying a nonempty ID or Name starts a new call; one carrying
// neither is an argument continuation of the most recently started call.
type ToolCallFragment struct {
	ID        string
	Name      string
	Arguments string
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventFailed
}
