package flightboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/flightboard/dashboard"
	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/handoff"
	"github.com/jpalmerr/flightboard/internal/observability"
	"github.com/jpalmerr/flightboard/internal/poller"
	"github.com/jpalmerr/flightboard/internal/server"
	"github.com/jpalmerr/flightboard/internal/source"
	"github.com/jpalmerr/flightboard/internal/store"
)

const (
	defaultRefreshInterval = 10 * time.Second
	defaultPort            = 8080
)

// DefaultRegion is London Heathrow with a 100 km radius.
var DefaultRegion = flight.Region{CenterLat: 51.47, CenterLon: -0.45, RadiusKm: 100}

// FlightBoard wires a flight source to a live display.
//
// A background poller fetches flights on a fixed interval with exponential
// backoff on failure and hands each result to a single-slot mailbox. A
// foreground [Consumer] drains the mailbox, keeps the last good batch,
// sorts and caps it, and renders the resulting [View] to the web
// dashboard, any configured renderers and view callbacks.
//
// The typical lifecycle is:
//
//	fb, err := flightboard.New(flightboard.WithSource(src))
//	if err != nil {
//	    slog.Error("failed to create flightboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	fb.Start(ctx) // blocks until context cancelled
type FlightBoard struct {
	title            string
	source           flight.Source
	region           flight.Region
	interval         time.Duration
	maxBackoff       time.Duration
	failureThreshold int
	fetchTimeout     time.Duration
	transform        Transform
	port             int
	headless         bool
	hideMetrics      bool
	demo             bool
	logger           *slog.Logger
	viewCallbacks    []func(View)
	renderers        []Renderer

	mailbox *handoff.Mailbox[flight.UpdateEvent]
	metrics *observability.Collector

	mu      sync.Mutex
	started bool
}

// New creates a [FlightBoard] with the given options.
//
// A source is required, through [WithSource] or [WithDemo]. Other options
// default to: region [DefaultRegion], refresh every 10 seconds, backoff
// ceiling 5 minutes, 50 flights sorted by distance, port 8080.
//
// Pipeline metrics are registered on a private registry unless
// [WithMetricsRegisterer] is given.
func New(opts ...Option) (*FlightBoard, error) {
	cfg := &fbConfig{
		region:   DefaultRegion,
		interval: defaultRefreshInterval,
		port:     defaultPort,
		transform: Transform{
			SortBy:     SortByDistance,
			MaxFlights: DefaultMaxFlights,
		},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.source == nil {
		if !cfg.demo {
			return nil, errors.New("a flight source is required")
		}
		cfg.source = source.NewDemo(source.DemoConfig{Region: cfg.region})
	}
	if cfg.filterRegion {
		cfg.transform.Filter = WithinRegion(cfg.region)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := cfg.registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mailbox := handoff.New[flight.UpdateEvent]()
	if err := observability.WatchHandoff(reg,
		func() uint64 { return mailbox.Stats().Puts },
		func() uint64 { return mailbox.Stats().Drops },
	); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &FlightBoard{
		title:            cfg.title,
		source:           cfg.source,
		region:           cfg.region,
		interval:         cfg.interval,
		maxBackoff:       cfg.maxBackoff,
		failureThreshold: cfg.failureThreshold,
		fetchTimeout:     cfg.fetchTimeout,
		transform:        cfg.transform,
		port:             cfg.port,
		headless:         cfg.headless,
		hideMetrics:      cfg.hideMetrics,
		demo:             cfg.demo,
		logger:           logger,
		viewCallbacks:    cfg.viewCallbacks,
		renderers:        cfg.renderers,
		mailbox:          mailbox,
		metrics:          metrics,
	}, nil
}

// Session is a running pipeline whose consumer is driven by the caller.
//
// The poller (and the web dashboard, unless headless) run in the
// background. The caller receives events from [Session.Events] and passes
// them to [Session.Handle], typically from a UI event loop.
type Session struct {
	consumer *Consumer
	poller   *poller.Poller
	cancel   context.CancelFunc
	once     sync.Once
}

// Events returns the mailbox receive channel.
func (s *Session) Events() <-chan flight.UpdateEvent {
	return s.consumer.mailbox.C()
}

// Handle processes one event and returns the rendered view.
func (s *Session) Handle(ev flight.UpdateEvent) View {
	return s.consumer.Handle(ev)
}

// Consumer returns the session's consumer.
func (s *Session) Consumer() *Consumer {
	return s.consumer
}

// Close stops the poller and the web dashboard. It is idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.poller.Stop()
	})
}

// Open starts the background half of the pipeline and returns a
// [Session] for the caller to drive. A FlightBoard can be opened once.
//
// Returns an error if the board was already started or the HTTP server
// fails to start.
func (fb *FlightBoard) Open(ctx context.Context) (*Session, error) {
	fb.mu.Lock()
	if fb.started {
		fb.mu.Unlock()
		return nil, errors.New("flightboard already started")
	}
	fb.started = true
	fb.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	renderers := append([]Renderer(nil), fb.renderers...)
	if !fb.headless {
		st := store.NewMemoryStore()
		srvOpts := []server.Option{server.WithClientObserver(fb.metrics.SetStreamClients)}
		if !fb.hideMetrics {
			srvOpts = append(srvOpts, server.WithMetricsHandler(fb.metrics.Handler()))
		}
		srv := server.NewServer(st, fb.port, dashboard.Assets, fb.title, fb.logger, srvOpts...)
		if err := srv.Start(runCtx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start HTTP server: %w", err)
		}
		renderers = append(renderers, storeRenderer{store: st, title: fb.title})
		fb.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", fb.port))
	}

	consumer := NewConsumer(fb.mailbox, fb.transform, fb.logger, renderers...)
	consumer.metrics = fb.metrics
	consumer.demo = fb.demo
	consumer.callbacks = fb.viewCallbacks

	p, err := poller.New(fb.source, poller.Config{
		Region:           fb.region,
		Interval:         fb.interval,
		MaxInterval:      fb.maxBackoff,
		FailureThreshold: fb.failureThreshold,
		FetchTimeout:     fb.fetchTimeout,
	}, func(ev flight.UpdateEvent) {
		if fb.mailbox.Put(ev) {
			fb.logger.Debug("consumer behind, replaced pending update")
		}
	}, fb.logger, poller.WithMetrics(fb.metrics))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}
	p.Start(runCtx)

	return &Session{consumer: consumer, poller: p, cancel: cancel}, nil
}

// Start runs the board until ctx is cancelled.
//
// During execution the poller fetches immediately and then on the
// configured interval, the consumer renders every update, and the web
// dashboard is served on the configured port unless headless.
//
// Returns nil on graceful shutdown. Returns an error if the board was
// already started or the HTTP server fails to start.
func (fb *FlightBoard) Start(ctx context.Context) error {
	fb.logger.Info("flightboard starting",
		"region", fmt.Sprintf("%.4f,%.4f r=%.0fkm", fb.region.CenterLat, fb.region.CenterLon, fb.region.RadiusKm),
		"interval", fb.interval.String(),
		"demo", fb.demo,
	)

	if ctx.Err() != nil {
		return nil
	}

	session, err := fb.Open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	_ = session.consumer.Run(ctx)
	fb.logger.Info("flightboard stopped")
	return nil
}

// Region returns the configured area of interest.
func (fb *FlightBoard) Region() flight.Region {
	return fb.region
}

// Port returns the configured HTTP port for the dashboard server.
func (fb *FlightBoard) Port() int {
	return fb.port
}

// RefreshInterval returns the base delay between polls.
func (fb *FlightBoard) RefreshInterval() time.Duration {
	return fb.interval
}

// Transform returns the presentation transform applied to each batch.
func (fb *FlightBoard) Transform() Transform {
	return fb.transform
}

// Demo reports whether the board runs in demo mode.
func (fb *FlightBoard) Demo() bool {
	return fb.demo
}
