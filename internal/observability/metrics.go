// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the FlightBoard update pipeline.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/flightboard/flight"
)

// Collector bundles the pipeline's Prometheus metrics.
//
// All methods are safe to call on a nil *Collector, which turns metrics off
// without nil checks at every call site.
type Collector struct {
	gatherer prometheus.Gatherer

	Polls               *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	ConsecutiveFailures prometheus.Gauge
	PollInterval        prometheus.Gauge
	BatchFlights        prometheus.Gauge
	DisplayedFlights    prometheus.Gauge
	DetailsLookups      *prometheus.CounterVec
	StreamClients       prometheus.Gauge
}

// NewCollector registers pipeline metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	polls, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flightboard_polls_total",
		Help: "Poll attempts, labeled by outcome and error kind.",
	}, []string{"outcome", "kind"}), "flightboard_polls_total")
	if err != nil {
		return nil, err
	}

	fetchDuration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flightboard_fetch_duration_seconds",
		Help:    "Latency of source fetches in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "flightboard_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	failures, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightboard_consecutive_failures",
		Help: "Current number of consecutive failed polls.",
	}), "flightboard_consecutive_failures")
	if err != nil {
		return nil, err
	}

	interval, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightboard_poll_interval_seconds",
		Help: "Delay before the next poll, including backoff.",
	}), "flightboard_poll_interval_seconds")
	if err != nil {
		return nil, err
	}

	batchFlights, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightboard_batch_flights",
		Help: "Number of flights in the most recent successful batch.",
	}), "flightboard_batch_flights")
	if err != nil {
		return nil, err
	}

	displayed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightboard_displayed_flights",
		Help: "Number of flights currently shown after sort and cap.",
	}), "flightboard_displayed_flights")
	if err != nil {
		return nil, err
	}

	details, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flightboard_details_lookups_total",
		Help: "Flight details cache lookups, labeled by result (hit or miss).",
	}, []string{"result"}), "flightboard_details_lookups_total")
	if err != nil {
		return nil, err
	}

	clients, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightboard_stream_clients",
		Help: "Number of connected live-update stream clients.",
	}), "flightboard_stream_clients")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		Polls:               polls,
		FetchDuration:       fetchDuration,
		ConsecutiveFailures: failures,
		PollInterval:        interval,
		BatchFlights:        batchFlights,
		DisplayedFlights:    displayed,
		DetailsLookups:      details,
		StreamClients:       clients,
	}, nil
}

// WatchHandoff exposes mailbox counters as Prometheus counters read on scrape.
func WatchHandoff(reg prometheus.Registerer, puts, drops func() uint64) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "flightboard_handoff_puts_total",
		Help: "Update events offered to the handoff mailbox.",
	}, func() float64 { return float64(puts()) })); err != nil {
		return fmt.Errorf("register flightboard_handoff_puts_total: %w", err)
	}
	if err := reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "flightboard_handoff_drops_total",
		Help: "Update events overwritten before the consumer drained them.",
	}, func() float64 { return float64(drops()) })); err != nil {
		return fmt.Errorf("register flightboard_handoff_drops_total: %w", err)
	}
	return nil
}

// ObservePoll records the outcome of one poll attempt.
func (c *Collector) ObservePoll(ev flight.UpdateEvent, took time.Duration) {
	if c == nil {
		return
	}
	if ev.IsSuccess() {
		c.Polls.WithLabelValues("success", "").Inc()
		c.BatchFlights.Set(float64(ev.Batch.Len()))
	} else {
		c.Polls.WithLabelValues("failure", string(ev.ErrKind)).Inc()
	}
	c.FetchDuration.Observe(took.Seconds())
	c.ConsecutiveFailures.Set(float64(ev.Status.ConsecutiveFailures))
	c.PollInterval.Set(ev.NextPoll.Seconds())
}

// SetDisplayed records how many flights the consumer forwarded to renderers.
func (c *Collector) SetDisplayed(n int) {
	if c == nil {
		return
	}
	c.DisplayedFlights.Set(float64(n))
}

// ObserveDetailsLookup counts a details cache hit or miss.
func (c *Collector) ObserveDetailsLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.DetailsLookups.WithLabelValues("hit").Inc()
	} else {
		c.DetailsLookups.WithLabelValues("miss").Inc()
	}
}

// SetStreamClients records the number of connected stream clients.
func (c *Collector) SetStreamClients(n int) {
	if c == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds col to reg, reusing an already registered collector of the
// same type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
