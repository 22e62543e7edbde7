package agent

import (
	"context"
	"io"
	"strings"
)

// Flusher is implemented by writers that can push buffered bytes to the
// client immediately, such as http.ResponseWriter behind a streaming route.
type Flusher interface {
	Flush()
}

// RenderSteps consumes events from the bridge and writes the step markup
// stream to w until a terminal event arrives.
//
// Each tool call renders as <step><step_name>NAME</step_name> followed by
// the raw argument fragments as they stream in; a step boundary closes the
// open step. Once the final answer's step has closed, any trailing output is
// suppressed. RenderSteps returns the error carried by a Failed event, or
// ctx.Err if the consumer is cancelled first.
func RenderSteps(ctx context.Context, bridge *Bridge, w io.Writer) error {
	flusher, _ := w.(Flusher)

	openStep := false
	finalStarted := false
	finalComplete := false

	emit := func(s string) error {
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	for {
		ev, ok := bridge.Next(ctx)
		if !ok {
			return ctx.Err()
		}

		switch ev.Type {
		case EventTokenDelta:
			if finalComplete || ev.Tool == nil {
				continue
			}
			if ev.Tool.Name != "" {
				if openStep {
					if err := emit("</step>"); err != nil {
						return err
					}
				}
				if err := emit("<step><step_name>" + ev.Tool.Name + "</step_name>"); err != nil {
					return err
				}
				openStep = true
				if ev.Tool.Name == TerminatingTool {
					finalStarted = true
				}
			}
			if ev.Tool.Arguments != "" {
				if err := emit(ev.Tool.Arguments); err != nil {
					return err
				}
			}

		case EventStepBoundary:
			if finalComplete {
				continue
			}
			if openStep {
				if err := emit("</step>"); err != nil {
					return err
				}
				openStep = false
			}
			if finalStarted {
				finalComplete = true
			}

		case EventDone:
			if openStep && !finalComplete {
				if err := emit("</step>"); err != nil {
					return err
				}
			}
			return nil

		case EventFailed:
			return ev.Err
		}
	}
}

// CollectSteps consumes the bridge and returns the whole step markup stream
// as one string, for callers that do not stream incrementally.
func CollectSteps(ctx context.Context, bridge *Bridge) (string, error) {
	var b strings.Builder
	err := RenderSteps(ctx, bridge, &b)
	return b.String(), err
}
