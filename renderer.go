package flightboard

import (
	"log/slog"
	"runtime/debug"

	"github.com/jpalmerr/flightboard/internal/store"
)

// Renderer draws a [View].
//
// Render is called on the consumer goroutine after every update event and
// must not block for long. Panics are recovered and logged.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts an ordinary function to the [Renderer] interface.
type RendererFunc func(View)

// Render calls f(v).
func (f RendererFunc) Render(v View) {
	f(v)
}

// NewLogRenderer returns a [Renderer] that writes each view to logger.
//
// State changes are logged at Info; routine refreshes at Debug.
func NewLogRenderer(logger *slog.Logger) Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logRenderer{logger: logger}
}

type logRenderer struct {
	logger    *slog.Logger
	lastState string
	seen      bool
}

func (r *logRenderer) Render(v View) {
	attrs := []any{
		"state", v.State.String(),
		"displayed", len(v.Flights),
		"flights", v.FlightCount,
		"failures", v.Failures,
		"next_poll", v.NextPoll.String(),
	}
	if v.Message != "" {
		attrs = append(attrs, "message", v.Message)
	}

	state := v.State.String()
	if !r.seen || state != r.lastState {
		r.logger.Info("board state changed", attrs...)
	} else {
		r.logger.Debug("board updated", attrs...)
	}
	r.seen = true
	r.lastState = state
}

// storeRenderer publishes views to the web dashboard's store.
type storeRenderer struct {
	store store.Store
	title string
}

func (r storeRenderer) Render(v View) {
	r.store.Update(v.snapshot(r.title))
}

// invokeRendererSafe calls a renderer with panic recovery.
// Panics are logged but do not propagate.
func invokeRendererSafe(r Renderer, v View, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("renderer panicked",
				"panic", rec,
				"state", v.State.String(),
				"stack", string(debug.Stack()),
			)
		}
	}()
	r.Render(v)
}
