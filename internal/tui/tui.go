// Package tui drives a FlightBoard consumer from a terminal UI.
//
// The bubbletea event loop owns the consumer: each update event from the
// poller arrives as a message, is handled on the UI goroutine, and the
// resulting view is drawn as a text table.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/flight"
)

const tickInterval = time.Second

// Feed is the caller-driven half of a running board.
// [*flightboard.Session] implements it.
type Feed interface {
	Events() <-chan flight.UpdateEvent
	Handle(flight.UpdateEvent) flightboard.View
}

// eventMsg carries one update event into the UI loop.
type eventMsg struct {
	ev flight.UpdateEvent
}

// feedClosedMsg is sent when the event channel closes.
type feedClosedMsg struct{}

// tickMsg refreshes the countdown to the next poll.
type tickMsg time.Time

// Model is the bubbletea model for the board.
type Model struct {
	feed  Feed
	title string
	now   func() time.Time

	// done is closed once the UI stops; pending waits return early.
	done chan struct{}
	stop func()

	view       flightboard.View
	receivedAt time.Time
	width      int
	height     int
	closed     bool
}

// New returns a model reading from feed.
func New(feed Feed, title string) Model {
	if title == "" {
		title = "FlightBoard"
	}
	done := make(chan struct{})
	return Model{
		feed:  feed,
		title: title,
		now:   time.Now,
		done:  done,
		stop:  sync.OnceFunc(func() { close(done) }),
		view: flightboard.View{
			State:   flight.Disconnected,
			Message: "Initializing...",
		},
	}
}

// waitForEvent blocks until the next event or until the UI stops. An
// event taken after the stop is still handed to the feed.
func (m Model) waitForEvent() tea.Cmd {
	feed, done := m.feed, m.done
	return func() tea.Msg {
		select {
		case ev, ok := <-feed.Events():
			if !ok {
				return feedClosedMsg{}
			}
			select {
			case <-done:
				feed.Handle(ev)
				return nil
			default:
			}
			return eventMsg{ev: ev}
		case <-done:
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick())
}

// Update handles keys, resizes, and update events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.stop()
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case eventMsg:
		m.view = m.feed.Handle(msg.ev)
		m.receivedAt = m.now()
		return m, m.waitForEvent()

	case feedClosedMsg:
		m.closed = true
		m.stop()
		return m, tea.Quit

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// Closed reports whether the event feed has closed.
func (m Model) Closed() bool {
	return m.closed
}

// Current returns the last rendered view.
func (m Model) Current() flightboard.View {
	return m.view
}

// View draws the board.
func (m Model) View() string {
	var b strings.Builder

	header := m.title
	if m.view.Demo {
		header += "  [DEMO]"
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%-9s %-4s %-5s %-5s %-5s %8s %6s %-8s %8s\n",
		"CALLSIGN", "AIR", "TYPE", "FROM", "TO", "ALT ft", "KTS", "HDG", "DIST km")

	rows := m.view.Flights
	if m.height > 0 {
		// header, blank, column titles, blank, status
		if limit := m.height - 5; limit >= 0 && len(rows) > limit {
			rows = rows[:limit]
		}
	}
	for _, f := range rows {
		fmt.Fprintf(&b, "%-9s %-4s %-5s %-5s %-5s %8s %6d %-3s %-4s %8.1f\n",
			clip(dash(f.Callsign), 9),
			clip(dash(f.Airline), 4),
			clip(dash(f.AircraftType), 5),
			clip(dash(f.Origin), 5),
			clip(dash(f.Destination), 5),
			flight.FormatAltitude(f.Altitude),
			f.GroundSpeed,
			flight.FormatHeading(f.Heading),
			flight.CompassDirection(f.Heading),
			f.DistanceKm,
		)
	}
	if len(m.view.Flights) == 0 && m.view.HasData {
		b.WriteString("  no flights in range\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())

	out := b.String()
	if m.width > 0 {
		lines := strings.Split(out, "\n")
		for i, l := range lines {
			lines[i] = clip(l, m.width)
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func (m Model) statusLine() string {
	v := m.view
	parts := []string{strings.ToUpper(v.State.String()), v.Message}
	if v.HasData {
		parts = append(parts, fmt.Sprintf("%d of %d flights", len(v.Flights), v.FlightCount))
		parts = append(parts, "updated "+v.LastUpdate.Format("15:04:05"))
	}
	if v.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failures", v.Failures))
	}
	if !m.receivedAt.IsZero() && v.NextPoll > 0 {
		left := v.NextPoll - m.now().Sub(m.receivedAt)
		if left < 0 {
			left = 0
		}
		parts = append(parts, fmt.Sprintf("next in %ds", int(left.Round(time.Second)/time.Second)))
	}
	parts = append(parts, "q to quit")
	return strings.Join(parts, " | ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Run runs the UI until the user quits, the feed closes, or ctx is
// cancelled. Cancellation is not an error.
func Run(ctx context.Context, feed Feed, title string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	m := New(feed, title)
	defer m.stop()
	p := tea.NewProgram(m, opts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
