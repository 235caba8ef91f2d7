package flightboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/handoff"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects rendered views.
type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

func successEvent(at time.Time, flights ...flight.Flight) flight.UpdateEvent {
	status := flight.ConnectionStatus{}.RecordSuccess(at)
	ev := flight.Success(flight.Batch{Flights: flights, CapturedAt: at}, status)
	ev.NextPoll = 10 * time.Second
	return ev
}

func failureEvent(failures int, kind flight.ErrorKind, msg string) flight.UpdateEvent {
	status := flight.ConnectionStatus{}
	for i := 0; i < failures; i++ {
		status = status.RecordFailure(5)
	}
	return flight.Failure(kind, msg, status, time.Now())
}

func TestConsumer_InitialViewHasNoData(t *testing.T) {
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{}, testLogger())

	v := c.View()
	if v.HasData {
		t.Error("HasData = true before any event")
	}
	if v.State != flight.Disconnected {
		t.Errorf("State = %v, want disconnected", v.State)
	}
	if v.Message != "Initializing..." {
		t.Errorf("Message = %q, want Initializing...", v.Message)
	}
	if _, ok := c.Current(); ok {
		t.Error("Current() ok = true before any event")
	}
}

func TestConsumer_SuccessRendersTransformedBatch(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(handoff.New[flight.UpdateEvent](),
		Transform{SortBy: SortByDistance, MaxFlights: 2}, testLogger(), rec)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	v := c.Handle(successEvent(at,
		flight.Flight{Callsign: "A", DistanceKm: 5},
		flight.Flight{Callsign: "B", DistanceKm: 5},
		flight.Flight{Callsign: "C", DistanceKm: 1},
	))

	if !v.HasData || v.State != flight.Connected || v.Message != "Connected" {
		t.Errorf("view = %+v", v)
	}
	if got := callsigns(v.Flights); !equalStrings(got, []string{"C", "A"}) {
		t.Errorf("Flights = %v, want [C A]", got)
	}
	if v.FlightCount != 3 {
		t.Errorf("FlightCount = %d, want 3", v.FlightCount)
	}
	if !v.LastUpdate.Equal(at) {
		t.Errorf("LastUpdate = %v, want %v", v.LastUpdate, at)
	}
	if len(rec.all()) != 1 {
		t.Errorf("rendered %d views, want 1", len(rec.all()))
	}
}

func TestConsumer_FailureKeepsLastGoodData(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{SortBy: SortByCallsign}, testLogger(), rec)

	at := time.Now()
	ok := c.Handle(successEvent(at, flight.Flight{ID: "1", Callsign: "BAW1"}, flight.Flight{ID: "2", Callsign: "AFR2"}))
	before, _ := c.Current()

	v := c.Handle(failureEvent(2, flight.ErrNetwork, "Connection error"))

	after, populated := c.Current()
	if !populated {
		t.Fatal("cache emptied by failure")
	}
	if len(after.Flights) != len(before.Flights) || !after.CapturedAt.Equal(before.CapturedAt) {
		t.Errorf("cache changed by failure: before %v, after %v", before, after)
	}
	if !equalStrings(callsigns(v.Flights), callsigns(ok.Flights)) {
		t.Errorf("displayed list changed on failure: %v -> %v", callsigns(ok.Flights), callsigns(v.Flights))
	}
	if v.State != flight.Reconnecting || v.Failures != 2 {
		t.Errorf("state = %v failures = %d, want reconnecting/2", v.State, v.Failures)
	}
	if v.Message != "Connection error" {
		t.Errorf("Message = %q", v.Message)
	}
	if !v.HasData || !v.LastUpdate.Equal(at) {
		t.Errorf("HasData/LastUpdate lost on failure: %+v", v)
	}
}

func TestConsumer_CallbackEditsDoNotLeak(t *testing.T) {
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{SortBy: SortByCallsign}, testLogger(),
		RendererFunc(func(v View) { v.Flights[0].Callsign = "RENDERER" }),
	)
	c.callbacks = []func(View){
		func(v View) {
			v.Flights[0], v.Flights[1] = v.Flights[1], v.Flights[0]
		},
	}

	ok := c.Handle(successEvent(time.Now(), flight.Flight{ID: "1", Callsign: "BAW1"}, flight.Flight{ID: "2", Callsign: "AFR2"}))
	if got := callsigns(ok.Flights); !equalStrings(got, []string{"AFR2", "BAW1"}) {
		t.Fatalf("returned view = %v, want [AFR2 BAW1]", got)
	}

	v := c.Handle(failureEvent(1, flight.ErrNetwork, "Connection error"))
	if got := callsigns(v.Flights); !equalStrings(got, []string{"AFR2", "BAW1"}) {
		t.Errorf("view after failure = %v, want [AFR2 BAW1]", got)
	}
	if got := callsigns(c.View().Flights); !equalStrings(got, []string{"AFR2", "BAW1"}) {
		t.Errorf("View() = %v, want [AFR2 BAW1]", got)
	}
}

func TestConsumer_FailureBeforeAnySuccess(t *testing.T) {
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{}, testLogger())

	v := c.Handle(failureEvent(6, flight.ErrAuth, "Invalid API key"))
	if v.HasData {
		t.Error("HasData = true after only failures")
	}
	if v.State != flight.Disconnected {
		t.Errorf("State = %v, want disconnected past threshold", v.State)
	}
	if len(v.Flights) != 0 {
		t.Errorf("Flights = %v, want none", v.Flights)
	}
}

func TestConsumer_EmptySuccessIsData(t *testing.T) {
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{}, testLogger())

	v := c.Handle(successEvent(time.Now()))
	if !v.HasData {
		t.Error("HasData = false after empty success")
	}
	if len(v.Flights) != 0 || v.FlightCount != 0 {
		t.Errorf("view = %+v, want no flights", v)
	}
}

func TestConsumer_PollDrainsAtMostOne(t *testing.T) {
	mb := handoff.New[flight.UpdateEvent]()
	rec := &recorder{}
	c := NewConsumer(mb, Transform{}, testLogger(), rec)

	if c.Poll() {
		t.Fatal("Poll() = true on empty mailbox")
	}

	mb.Put(successEvent(time.Now(), flight.Flight{Callsign: "OLD"}))
	mb.Put(successEvent(time.Now(), flight.Flight{Callsign: "NEW"}))

	if !c.Poll() {
		t.Fatal("Poll() = false with pending event")
	}
	if c.Poll() {
		t.Error("second Poll() = true, mailbox should hold one event")
	}
	views := rec.all()
	if len(views) != 1 || views[0].Flights[0].Callsign != "NEW" {
		t.Errorf("rendered %v, want only NEW", views)
	}
}

func TestConsumer_RunUntilCancelled(t *testing.T) {
	mb := handoff.New[flight.UpdateEvent]()
	rendered := make(chan View, 4)
	c := NewConsumer(mb, Transform{}, testLogger(), RendererFunc(func(v View) { rendered <- v }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	mb.Put(successEvent(time.Now(), flight.Flight{Callsign: "KLM1"}))

	select {
	case v := <-rendered:
		if v.Flights[0].Callsign != "KLM1" {
			t.Errorf("rendered %v", v.Flights)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not handle the event")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestConsumer_RendererPanicRecovered(t *testing.T) {
	rec := &recorder{}
	var calls []View
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{}, testLogger(),
		RendererFunc(func(View) { panic("boom") }),
		rec,
	)
	c.callbacks = []func(View){
		func(View) { panic("callback boom") },
		func(v View) { calls = append(calls, v) },
	}

	c.Handle(successEvent(time.Now(), flight.Flight{Callsign: "X"}))

	if len(rec.all()) != 1 {
		t.Error("renderer after a panicking one was not called")
	}
	if len(calls) != 1 {
		t.Error("callback after a panicking one was not called")
	}
}

func TestConsumer_DemoFlag(t *testing.T) {
	c := NewConsumer(handoff.New[flight.UpdateEvent](), Transform{}, testLogger())
	c.demo = true

	if v := c.Handle(successEvent(time.Now())); !v.Demo {
		t.Error("Demo = false for demo consumer")
	}
}

func TestLogRenderer(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	r := NewLogRenderer(logger)

	r.Render(View{State: flight.Connected})
	r.Render(View{State: flight.Connected})
	r.Render(View{State: flight.Reconnecting, Message: "Rate limit exceeded"})

	out := buf.String()
	if got := countLines(out); got != 2 {
		t.Errorf("logged %d Info lines, want 2 (state changes only):\n%s", got, out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
