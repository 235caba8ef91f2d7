package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/observability"
)

const (
	// DefaultMaxInterval is the backoff ceiling.
	DefaultMaxInterval = 5 * time.Minute

	// DefaultFailureThreshold is the failure count after which the state
	// moves from Reconnecting to Disconnected.
	DefaultFailureThreshold = 5

	// DefaultFetchTimeout bounds a single Source call.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultCheckGranularity is the longest the sleep goes without
	// re-checking cancellation.
	DefaultCheckGranularity = 250 * time.Millisecond
)

// Config holds the poller's schedule and scope.
type Config struct {
	// Region is the area to fetch. Its bounding box is passed to the source
	// and its center is used to compute each flight's distance.
	Region flight.Region

	// Interval is the base delay between polls. Configuration enforces a 5s
	// minimum; the poller itself only requires a positive value.
	Interval time.Duration

	// MaxInterval caps the backoff delay. Zero means DefaultMaxInterval.
	MaxInterval time.Duration

	// FailureThreshold: zero means DefaultFailureThreshold.
	FailureThreshold int

	// FetchTimeout: zero means DefaultFetchTimeout.
	FetchTimeout time.Duration

	// CheckGranularity: zero means DefaultCheckGranularity.
	CheckGranularity time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.CheckGranularity <= 0 {
		c.CheckGranularity = DefaultCheckGranularity
	}
	return c
}

// Option configures a [Poller].
type Option func(*Poller)

// WithMetrics records poll outcomes on c.
func WithMetrics(c *observability.Collector) Option {
	return func(p *Poller) {
		p.metrics = c
	}
}

// WithTracer overrides the tracer used for fetch spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Poller) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// Poller periodically fetches flights from a [flight.Source].
//
// The poll loop runs either on a goroutine started by [Poller.Start] or on
// the caller's goroutine via [Poller.Run]; use one or the other, not both.
// Start and Stop are safe for concurrent use.
type Poller struct {
	source  flight.Source
	cfg     Config
	emit    func(flight.UpdateEvent)
	logger  *slog.Logger
	metrics *observability.Collector
	tracer  trace.Tracer
	now     func() time.Time

	// sleep waits for d or until ctx is done; it reports whether the full
	// delay elapsed.
	sleep func(ctx context.Context, d time.Duration) bool

	// status is only touched by the loop goroutine.
	status flight.ConnectionStatus

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a [Poller]. emit is called on the poll goroutine once per
// attempt and must not block for long; it normally hands the event to a
// mailbox.
func New(source flight.Source, cfg Config, emit func(flight.UpdateEvent), logger *slog.Logger, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, errors.New("source cannot be nil")
	}
	if emit == nil {
		return nil, errors.New("emit cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		source: source,
		cfg:    cfg.withDefaults(),
		emit:   emit,
		logger: logger,
		tracer: observability.Tracer(),
		now:    time.Now,
	}
	p.sleep = p.granularSleep
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start runs the poll loop on a background goroutine.
//
// If ctx is nil, context.Background() is used. Start is idempotent and is a
// no-op after Stop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		_ = p.Run(runCtx)
	}()
}

// Stop cancels the loop and waits for it to exit. Because the sleep re-checks
// cancellation every CheckGranularity, Stop returns promptly even during a
// long backoff. An in-flight fetch is cancelled through its context.
//
// Stop is idempotent and safe to call before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Run polls until ctx is cancelled. The first poll happens immediately.
// Cancellation is a clean shutdown and returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		"interval", p.cfg.Interval.String(),
		"max_interval", p.cfg.MaxInterval.String(),
		"bounds", p.cfg.Region.Bounds().String(),
	)
	defer p.logger.Info("poller stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		ev, ok := p.poll(ctx)
		if !ok {
			return nil
		}
		p.emit(ev)

		if !p.sleep(ctx, ev.NextPoll) {
			return nil
		}
	}
}

// poll performs one attempt. It returns false when ctx was cancelled while
// the fetch was in flight, in which case no event is produced.
func (p *Poller) poll(ctx context.Context) (flight.UpdateEvent, bool) {
	start := time.Now()
	flights, err := p.fetch(ctx)
	took := time.Since(start)

	if ctx.Err() != nil {
		return flight.UpdateEvent{}, false
	}

	now := p.now()
	var ev flight.UpdateEvent
	if err != nil {
		p.status = p.status.RecordFailure(p.cfg.FailureThreshold)
		ev = flight.Failure(flight.KindOf(err), flight.MessageOf(err), p.status, now)
		p.logFailure(ev, err)
	} else {
		p.status = p.status.RecordSuccess(now)
		ev = flight.Success(p.buildBatch(flights, now), p.status)
		p.logger.Debug("poll succeeded",
			"flights", ev.Batch.Len(),
			"took", took.String(),
		)
	}
	ev.NextPoll = EffectiveInterval(p.cfg.Interval, p.status.ConsecutiveFailures, p.cfg.MaxInterval)

	p.metrics.ObservePoll(ev, took)
	return ev, true
}

// buildBatch normalizes every flight and stamps it with the capture time and
// its distance from the region center.
func (p *Poller) buildBatch(flights []flight.Flight, now time.Time) flight.Batch {
	out := make([]flight.Flight, len(flights))
	for i, f := range flights {
		f = f.Normalize()
		f.DistanceKm = p.cfg.Region.DistanceKm(f.Latitude, f.Longitude)
		f.SeenAt = now
		out[i] = f
	}
	return flight.Batch{Flights: out, CapturedAt: now}
}

func (p *Poller) logFailure(ev flight.UpdateEvent, err error) {
	attrs := []any{
		"kind", ev.ErrKind.String(),
		"failures", ev.Status.ConsecutiveFailures,
		"state", ev.Status.State.String(),
		"error", err,
	}
	if ev.Status.ConsecutiveFailures == p.cfg.FailureThreshold+1 {
		p.logger.Error("failure threshold exceeded, backing off", attrs...)
		return
	}
	p.logger.Warn("poll failed", attrs...)
}

// fetch calls the source with a bounded timeout inside a trace span.
func (p *Poller) fetch(ctx context.Context) ([]flight.Flight, error) {
	bounds := p.cfg.Region.Bounds()

	ctx, span := p.tracer.Start(ctx, "flightboard.fetch",
		trace.WithAttributes(attribute.String("flightboard.bounds", bounds.String())),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	flights, err := p.safeFetch(ctx, bounds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(flight.KindOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("flightboard.flights", len(flights)))
	return flights, nil
}

// safeFetch calls the source with panic recovery.
// A panic is logged with its stack under a correlation ID and returned as an
// unknown-kind fetch error carrying the ID.
func (p *Poller) safeFetch(ctx context.Context, bounds flight.BoundingBox) (flights []flight.Flight, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			p.logger.Error("source panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			flights = nil
			err = flight.NewFetchError(flight.ErrUnknown,
				fmt.Sprintf("source panic (correlation_id: %s)", correlationID), nil)
		}
	}()
	return p.source.Fetch(ctx, bounds)
}

// granularSleep waits for d while waking every CheckGranularity to observe
// cancellation, so a long backoff never delays shutdown.
func (p *Poller) granularSleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	tick := time.NewTicker(p.cfg.CheckGranularity)
	defer tick.Stop()
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-tick.C:
			if ctx.Err() != nil {
				return false
			}
			if !time.Now().Before(deadline) {
				return true
			}
		}
	}
}
