package flightboard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/flightboard/flight"
)

// fbConfig holds mutable state during FlightBoard construction.
type fbConfig struct {
	title            string
	source           flight.Source
	region           flight.Region
	regionSet        bool
	interval         time.Duration
	maxBackoff       time.Duration
	failureThreshold int
	fetchTimeout     time.Duration
	transform        Transform
	filterRegion     bool
	port             int
	headless         bool
	hideMetrics      bool
	demo             bool
	logger           *slog.Logger
	viewCallbacks    []func(View)
	renderers        []Renderer
	registerer       prometheus.Registerer
}

// Option is a function that configures a [FlightBoard] instance during
// construction. Options return an error if validation fails.
type Option func(*fbConfig) error

// WithSource sets where flights come from. Either WithSource or [WithDemo]
// is required.
func WithSource(src flight.Source) Option {
	return func(cfg *fbConfig) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		cfg.source = src
		return nil
	}
}

// WithRegion sets the area of interest: the center point and radius used
// for the fetch bounding box and for each flight's distance.
//
// Returns an error for coordinates outside [-90,90]/[-180,180] or a
// non-positive radius.
func WithRegion(r flight.Region) Option {
	return func(cfg *fbConfig) error {
		if r.CenterLat < -90 || r.CenterLat > 90 {
			return fmt.Errorf("center latitude must be between -90 and 90, got %v", r.CenterLat)
		}
		if r.CenterLon < -180 || r.CenterLon > 180 {
			return fmt.Errorf("center longitude must be between -180 and 180, got %v", r.CenterLon)
		}
		if r.RadiusKm <= 0 {
			return errors.New("radius must be positive")
		}
		cfg.region = r
		cfg.regionSet = true
		return nil
	}
}

// MinRefreshInterval is the shortest accepted delay between polls.
const MinRefreshInterval = 5 * time.Second

// WithRefreshInterval sets the base delay between polls. Defaults to 10
// seconds and must be at least [MinRefreshInterval]. Failures back off
// exponentially from this value.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *fbConfig) error {
		if d < MinRefreshInterval {
			return fmt.Errorf("refresh interval must be at least %s, got %s", MinRefreshInterval, d)
		}
		cfg.interval = d
		return nil
	}
}

// WithMaxBackoff caps the backoff delay. Defaults to 5 minutes.
func WithMaxBackoff(d time.Duration) Option {
	return func(cfg *fbConfig) error {
		if d <= 0 {
			return errors.New("max backoff must be positive")
		}
		cfg.maxBackoff = d
		return nil
	}
}

// WithFailureThreshold sets how many consecutive failures are shown as
// Reconnecting before the state becomes Disconnected. Defaults to 5.
func WithFailureThreshold(n int) Option {
	return func(cfg *fbConfig) error {
		if n <= 0 {
			return errors.New("failure threshold must be positive")
		}
		cfg.failureThreshold = n
		return nil
	}
}

// WithFetchTimeout bounds each source call. Defaults to 30 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(cfg *fbConfig) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		cfg.fetchTimeout = d
		return nil
	}
}

// WithMaxFlights caps how many flights are displayed. Defaults to 50.
func WithMaxFlights(n int) Option {
	return func(cfg *fbConfig) error {
		if n <= 0 {
			return errors.New("max flights must be positive")
		}
		cfg.transform.MaxFlights = n
		return nil
	}
}

// WithSort sets the display order. Defaults to distance, ascending.
func WithSort(key SortKey, ascending bool) Option {
	return func(cfg *fbConfig) error {
		k, err := ParseSortKey(string(key))
		if err != nil {
			return err
		}
		cfg.transform.SortBy = k
		cfg.transform.Descending = !ascending
		return nil
	}
}

// WithFilterRegion drops flights outside the region's radius before
// sorting. The source returns everything in the bounding box, which
// includes the corners.
func WithFilterRegion() Option {
	return func(cfg *fbConfig) error {
		cfg.filterRegion = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *fbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPort sets the HTTP port for the web dashboard. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *fbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHeadless disables the web dashboard. Views still reach renderers and
// callbacks.
func WithHeadless() Option {
	return func(cfg *fbConfig) error {
		cfg.headless = true
		return nil
	}
}

// WithoutMetricsEndpoint stops the dashboard serving /metrics. Metrics are
// still recorded on the registry.
func WithoutMetricsEndpoint() Option {
	return func(cfg *fbConfig) error {
		cfg.hideMetrics = true
		return nil
	}
}

// WithTitle sets the board title shown in the dashboard header.
// Defaults to "FlightBoard".
func WithTitle(title string) Option {
	return func(cfg *fbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithViewCallback registers a function to be called after every render.
//
// Callbacks run synchronously on the consumer goroutine, in registration
// order, and must not block. Each receives its own copy of View.Flights.
// Panics are recovered and logged. Nil callbacks are ignored.
func WithViewCallback(cb func(View)) Option {
	return func(cfg *fbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.viewCallbacks = append(cfg.viewCallbacks, cb)
		return nil
	}
}

// WithRenderer adds a [Renderer]. The web dashboard renderer is always
// installed unless [WithHeadless] is given.
func WithRenderer(r Renderer) Option {
	return func(cfg *fbConfig) error {
		if r == nil {
			return errors.New("renderer cannot be nil")
		}
		cfg.renderers = append(cfg.renderers, r)
		return nil
	}
}

// WithMetricsRegisterer registers pipeline metrics against reg instead of a
// private registry. If reg also implements prometheus.Gatherer, /metrics
// serves from it.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *fbConfig) error {
		if reg == nil {
			return errors.New("metrics registerer cannot be nil")
		}
		cfg.registerer = reg
		return nil
	}
}

// WithDemo marks the board as a demo. Without [WithSource] it also feeds
// the board from the synthetic flight generator.
func WithDemo() Option {
	return func(cfg *fbConfig) error {
		cfg.demo = true
		return nil
	}
}
