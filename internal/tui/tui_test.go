package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/flight"
)

type fakeFeed struct {
	events  chan flight.UpdateEvent
	handled []flight.UpdateEvent
	view    flightboard.View
}

func newFakeFeed(view flightboard.View) *fakeFeed {
	return &fakeFeed{events: make(chan flight.UpdateEvent, 1), view: view}
}

func (f *fakeFeed) Events() <-chan flight.UpdateEvent {
	return f.events
}

func (f *fakeFeed) Handle(ev flight.UpdateEvent) flightboard.View {
	f.handled = append(f.handled, ev)
	return f.view
}

var _ Feed = (*flightboard.Session)(nil)

func connectedView() flightboard.View {
	return flightboard.View{
		Flights: []flight.Flight{
			{Callsign: "BAW123", Airline: "BAW", AircraftType: "A320", Origin: "LHR", Destination: "CDG",
				Altitude: 35000, GroundSpeed: 450, Heading: 90, DistanceKm: 12.34},
			{Callsign: "", Altitude: 2500, Heading: 315, DistanceKm: 80},
		},
		State:       flight.Connected,
		Message:     "Connected",
		HasData:     true,
		FlightCount: 7,
		LastUpdate:  time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC),
		NextPoll:    10 * time.Second,
	}
}

func TestModel_InitialView(t *testing.T) {
	m := New(newFakeFeed(flightboard.View{}), "")

	out := m.View()
	for _, want := range []string{"FlightBoard", "DISCONNECTED", "Initializing...", "CALLSIGN"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q\n%s", want, out)
		}
	}
}

func TestModel_EventIsHandled(t *testing.T) {
	feed := newFakeFeed(connectedView())
	m := New(feed, "Heathrow")
	start := time.Date(2024, 5, 1, 14, 3, 10, 0, time.UTC)
	m.now = func() time.Time { return start }

	ev := flight.Success(flight.Batch{CapturedAt: start}, flight.ConnectionStatus{State: flight.Connected})
	next, cmd := m.Update(eventMsg{ev: ev})
	m = next.(Model)

	if len(feed.handled) != 1 {
		t.Fatalf("handled %d events, want 1", len(feed.handled))
	}
	if cmd == nil {
		t.Fatal("Update() should keep waiting for events")
	}
	if m.Current().FlightCount != 7 {
		t.Errorf("Current().FlightCount = %d, want 7", m.Current().FlightCount)
	}

	m.now = func() time.Time { return start.Add(3 * time.Second) }
	out := m.View()
	for _, want := range []string{
		"Heathrow",
		"BAW123", "A320", "LHR", "CDG",
		"35,000", "090 E", "12.3",
		"315 NW",
		"CONNECTED | Connected",
		"2 of 7 flights",
		"updated 14:03:09",
		"next in 7s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q\n%s", want, out)
		}
	}
}

func TestModel_WaitsOnFeed(t *testing.T) {
	feed := newFakeFeed(flightboard.View{})
	m := New(feed, "")

	ev := flight.Failure(flight.ErrNetwork, "timeout", flight.ConnectionStatus{}, time.Now())
	feed.events <- ev

	msg := m.waitForEvent()()
	got, ok := msg.(eventMsg)
	if !ok {
		t.Fatalf("msg = %T, want eventMsg", msg)
	}
	if got.ev.Message != "timeout" {
		t.Errorf("event message = %q", got.ev.Message)
	}

	close(feed.events)
	if _, ok := m.waitForEvent()().(feedClosedMsg); !ok {
		t.Error("closed feed should produce feedClosedMsg")
	}
}

func TestModel_QuitReleasesWait(t *testing.T) {
	feed := newFakeFeed(flightboard.View{})
	m := New(feed, "")
	wait := m.waitForEvent()

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	got := make(chan tea.Msg, 1)
	go func() { got <- wait() }()
	select {
	case msg := <-got:
		if msg != nil {
			t.Errorf("wait after quit = %T, want nil", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("wait still blocked after quit")
	}
	if len(feed.handled) != 0 {
		t.Errorf("handled %d events, want 0", len(feed.handled))
	}
}

func TestModel_EventAfterQuitIsNotLost(t *testing.T) {
	feed := newFakeFeed(flightboard.View{})
	m := New(feed, "")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	feed.events <- flight.Failure(flight.ErrNetwork, "timeout", flight.ConnectionStatus{}, time.Now())
	if msg := m.waitForEvent()(); msg != nil {
		t.Errorf("wait after quit = %T, want nil", msg)
	}

	// either still queued or passed to the feed
	if len(feed.events)+len(feed.handled) != 1 {
		t.Errorf("event dropped: queued %d, handled %d", len(feed.events), len(feed.handled))
	}
}

func TestModel_FeedClosedQuits(t *testing.T) {
	m := New(newFakeFeed(flightboard.View{}), "")

	next, cmd := m.Update(feedClosedMsg{})
	if !next.(Model).Closed() {
		t.Error("Closed() = false after feedClosedMsg")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_QuitKeys(t *testing.T) {
	tests := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, key := range tests {
		m := New(newFakeFeed(flightboard.View{}), "")
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Errorf("key %q: expected quit command", key.String())
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q: expected tea.QuitMsg", key.String())
		}
	}

	m := New(newFakeFeed(flightboard.View{}), "")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}); cmd != nil {
		t.Error("other keys should not produce a command")
	}
}

func TestModel_WindowSizeClipsOutput(t *testing.T) {
	feed := newFakeFeed(connectedView())
	m := New(feed, "")
	next, _ := m.Update(eventMsg{ev: flight.UpdateEvent{}})
	next, _ = next.(Model).Update(tea.WindowSizeMsg{Width: 20, Height: 6})
	m = next.(Model)

	out := m.View()
	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 20 {
			t.Errorf("line wider than 20: %q", line)
		}
	}
	// one row fits after the header, title row and status line
	if strings.Count(out, "2,500") != 0 {
		t.Errorf("second flight should be cut off at height 6\n%s", out)
	}
}

func TestModel_DemoAndEmpty(t *testing.T) {
	feed := newFakeFeed(flightboard.View{
		State: flight.Connected, Message: "Connected", HasData: true, Demo: true, Flights: []flight.Flight{},
	})
	m := New(feed, "Board")
	next, _ := m.Update(eventMsg{})
	out := next.(Model).View()

	if !strings.Contains(out, "Board  [DEMO]") {
		t.Errorf("missing demo tag\n%s", out)
	}
	if !strings.Contains(out, "no flights in range") {
		t.Errorf("missing empty message\n%s", out)
	}
}
