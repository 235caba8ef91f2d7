package flightboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/cache"
	"github.com/jpalmerr/flightboard/internal/handoff"
	"github.com/jpalmerr/flightboard/internal/observability"
)

// Consumer is the foreground half of the pipeline. It drains update events
// from the mailbox, keeps the last-known-good batch, applies the
// presentation transform and hands the resulting [View] to its renderers.
//
// Consumer does no network I/O. Drive it with [Consumer.Run] on a dedicated
// goroutine, or with [Consumer.Poll] from an existing loop (a UI tick, for
// example). Handle, Run and Poll may be mixed; events are processed one at
// a time.
type Consumer struct {
	mailbox   *handoff.Mailbox[flight.UpdateEvent]
	cache     *cache.ResultCache
	transform Transform
	renderers []Renderer
	logger    *slog.Logger

	// set by FlightBoard before the consumer starts
	metrics   *observability.Collector
	demo      bool
	callbacks []func(View)

	mu   sync.Mutex
	view View
}

// NewConsumer creates a [Consumer] reading from mailbox. A nil logger
// defaults to slog.Default().
func NewConsumer(mailbox *handoff.Mailbox[flight.UpdateEvent], t Transform, logger *slog.Logger, renderers ...Renderer) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		mailbox:   mailbox,
		cache:     cache.New(),
		transform: t,
		renderers: renderers,
		logger:    logger,
		view:      View{State: flight.Disconnected, Message: messageInitializing},
	}
}

// Handle processes one event and returns the view it rendered.
//
// A success replaces the cached batch and re-runs the transform. A failure
// leaves the cache and the displayed list untouched and only updates the
// status fields.
func (c *Consumer) Handle(ev flight.UpdateEvent) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view
	v.State = ev.Status.State
	v.Failures = ev.Status.ConsecutiveFailures
	v.NextPoll = ev.NextPoll
	v.Demo = c.demo

	switch ev.Kind {
	case flight.EventSuccess:
		c.cache.Update(ev.Batch)
		batch, _ := c.cache.Current()
		v.Flights = c.transform.Apply(batch.Flights)
		v.FlightCount = batch.Len()
		v.LastUpdate = batch.CapturedAt
		v.HasData = true
		v.Message = messageConnected
	case flight.EventFailure:
		v.Message = StatusMessage(ev.Message)
	default:
		c.logger.Warn("ignoring update event of unknown kind", "kind", ev.Kind.String())
		return c.view
	}

	c.view = v
	c.metrics.SetDisplayed(len(v.Flights))

	// each caller gets its own list so the kept view survives edits
	for _, r := range c.renderers {
		invokeRendererSafe(r, v.clone(), c.logger)
	}
	for _, cb := range c.callbacks {
		invokeCallbackSafe(cb, v.clone(), c.logger)
	}
	return v.clone()
}

// Poll processes at most one pending event without blocking. It reports
// whether an event was handled.
func (c *Consumer) Poll() bool {
	ev, ok := c.mailbox.TryTake()
	if !ok {
		return false
	}
	c.Handle(ev)
	return true
}

// Run handles events as they arrive until ctx is cancelled. Cancellation is
// a clean shutdown and returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.mailbox.C():
			c.Handle(ev)
		}
	}
}

// View returns the most recently rendered view.
func (c *Consumer) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Current returns the last-known-good batch and whether one has been
// received.
func (c *Consumer) Current() (flight.Batch, bool) {
	return c.cache.Current()
}

// invokeCallbackSafe calls a view callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(View), v View, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("view callback panicked",
				"panic", r,
				"state", v.State.String(),
			)
		}
	}()
	cb(v)
}
