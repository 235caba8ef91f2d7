package flightboard

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jpalmerr/flightboard/flight"
)

func TestNew_RequiresSource(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("New() expected error without a source, got nil")
	}
	if !strings.Contains(err.Error(), "source is required") {
		t.Errorf("New() error = %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	fb, err := New(WithSource(fixedSource()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fb.Port() != 8080 {
		t.Errorf("Port() = %v, want %v", fb.Port(), 8080)
	}
	if fb.RefreshInterval() != 10*time.Second {
		t.Errorf("RefreshInterval() = %v, want %v", fb.RefreshInterval(), 10*time.Second)
	}
	if fb.Region() != DefaultRegion {
		t.Errorf("Region() = %+v, want %+v", fb.Region(), DefaultRegion)
	}
	tr := fb.Transform()
	if tr.SortBy != SortByDistance || tr.Descending || tr.MaxFlights != 50 || tr.Filter != nil {
		t.Errorf("Transform() = %+v", tr)
	}
	if fb.Demo() {
		t.Error("Demo() = true without WithDemo")
	}
}

func TestWithDemo_SuppliesSource(t *testing.T) {
	fb, err := New(WithDemo())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !fb.Demo() {
		t.Error("Demo() = false")
	}
	if fb.source == nil {
		t.Error("demo board has no source")
	}
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want string
	}{
		{"nil source", WithSource(nil), "source cannot be nil"},
		{"latitude", WithRegion(flight.Region{CenterLat: 91, RadiusKm: 10}), "latitude"},
		{"longitude", WithRegion(flight.Region{CenterLon: -181, RadiusKm: 10}), "longitude"},
		{"radius", WithRegion(flight.Region{}), "radius must be positive"},
		{"interval", WithRefreshInterval(0), "refresh interval must be at least 5s"},
		{"interval below minimum", WithRefreshInterval(time.Second), "refresh interval must be at least 5s, got 1s"},
		{"backoff", WithMaxBackoff(-time.Second), "max backoff must be positive"},
		{"threshold", WithFailureThreshold(0), "failure threshold must be positive"},
		{"timeout", WithFetchTimeout(0), "fetch timeout must be positive"},
		{"max flights", WithMaxFlights(0), "max flights must be positive"},
		{"sort key", WithSort("heading", true), "unknown sort key"},
		{"logger", WithLogger(nil), "logger cannot be nil"},
		{"port low", WithPort(0), "port must be between 1 and 65535"},
		{"port high", WithPort(65536), "port must be between 1 and 65535"},
		{"renderer", WithRenderer(nil), "renderer cannot be nil"},
		{"registerer", WithMetricsRegisterer(nil), "registerer cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithDemo(), tt.opt)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestOptions_Applied(t *testing.T) {
	region := flight.Region{CenterLat: 53.35, CenterLon: -2.27, RadiusKm: 60}
	fb, err := New(
		WithSource(fixedSource()),
		WithRegion(region),
		WithRefreshInterval(15*time.Second),
		WithMaxBackoff(time.Minute),
		WithFailureThreshold(3),
		WithFetchTimeout(5*time.Second),
		WithMaxFlights(20),
		WithSort(SortByAltitude, false),
		WithFilterRegion(),
		WithPort(9090),
		WithTitle("Manchester"),
		WithHeadless(),
		WithViewCallback(nil),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fb.Region() != region || fb.RefreshInterval() != 15*time.Second || fb.Port() != 9090 {
		t.Errorf("region/interval/port not applied: %+v %v %d", fb.Region(), fb.RefreshInterval(), fb.Port())
	}
	if fb.maxBackoff != time.Minute || fb.failureThreshold != 3 || fb.fetchTimeout != 5*time.Second {
		t.Errorf("poller settings not applied: %v %d %v", fb.maxBackoff, fb.failureThreshold, fb.fetchTimeout)
	}
	if fb.title != "Manchester" || !fb.headless {
		t.Errorf("title/headless not applied: %q %v", fb.title, fb.headless)
	}
	if len(fb.viewCallbacks) != 0 {
		t.Error("nil view callback was registered")
	}

	tr := fb.Transform()
	if tr.SortBy != SortByAltitude || !tr.Descending || tr.MaxFlights != 20 {
		t.Errorf("Transform() = %+v", tr)
	}
	if tr.Filter == nil {
		t.Fatal("WithFilterRegion() did not install a filter")
	}
	if tr.Filter(flight.Flight{Latitude: 51.47, Longitude: -0.45}) {
		t.Error("filter kept a flight outside the region")
	}
	if !tr.Filter(flight.Flight{Latitude: 53.36, Longitude: -2.28}) {
		t.Error("filter dropped a flight near the center")
	}
}

func TestWithMetricsRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(WithDemo(), WithMetricsRegisterer(reg)); err != nil {
		t.Fatalf("New() error = %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "flightboard_handoff_puts_total", "flightboard_handoff_drops_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("handoff counters registered = %d, want 2", n)
	}

	// a second board on the same registry cannot share the mailbox counters
	if _, err := New(WithDemo(), WithMetricsRegisterer(reg)); err == nil {
		t.Error("New() expected error for duplicate handoff counters")
	}
}

func TestNew_PrivateRegistries(t *testing.T) {
	for i := 0; i < 3; i++ {
		if _, err := New(WithDemo()); err != nil {
			t.Fatalf("New() #%d error = %v", i, err)
		}
	}
}

// withTestInterval sets the poll interval without the production minimum.
func withTestInterval(d time.Duration) Option {
	return func(cfg *fbConfig) error {
		cfg.interval = d
		return nil
	}
}

func TestWithRefreshInterval_Minimum(t *testing.T) {
	fb, err := New(WithDemo(), WithRefreshInterval(MinRefreshInterval))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if fb.RefreshInterval() != MinRefreshInterval {
		t.Errorf("RefreshInterval() = %v, want %v", fb.RefreshInterval(), MinRefreshInterval)
	}

	if _, err := New(WithDemo(), WithRefreshInterval(MinRefreshInterval-time.Millisecond)); err == nil {
		t.Error("New() accepted an interval below the minimum")
	}
}
