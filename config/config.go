// Package config provides YAML configuration parsing for FlightBoard.
//
// This package enables running FlightBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Heathrow Arrivals
//	port: 8080
//
//	api:
//	  key: ${FR24_API_KEY}
//	  endpoint_type: light
//
//	location:
//	  center_lat: 51.47
//	  center_lon: -0.45
//	  radius_km: 100
//
//	display:
//	  refresh_interval: 10s
//	  sort_by: distance
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/source"
)

// APIKeyEnv overrides api.key when set.
const APIKeyEnv = "FR24_API_KEY"

const (
	minRefreshInterval = flightboard.MinRefreshInterval

	minTimeout = 1 * time.Second
	maxTimeout = 30 * time.Second

	defaultRadiusKm        = 100
	defaultRefreshInterval = 10 * time.Second
	defaultTimeout         = 30 * time.Second
	defaultMaxFlights      = 50
	defaultTracingEndpoint = "localhost:4317"
)

// ErrNotFound is returned by [Find] when no config file exists in any of
// the search paths.
var ErrNotFound = errors.New("configuration file not found; create config.yaml or pass --config")

// Config is the root configuration structure for FlightBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "FlightBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Demo replaces the live API with synthetic traffic. No API key is
	// needed.
	Demo bool `yaml:"demo"`

	API      APIConfig      `yaml:"api"`
	Location LocationConfig `yaml:"location"`
	Display  DisplayConfig  `yaml:"display"`
	Details  DetailsConfig  `yaml:"details"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// APIConfig configures the FlightRadar24 client.
type APIConfig struct {
	// Key is the bearer token. The FR24_API_KEY environment variable
	// takes precedence.
	Key string `yaml:"key"`

	// BaseURL defaults to the public FR24 API.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request. Between 1s and 30s, default 30s.
	Timeout Duration `yaml:"timeout"`

	// EndpointType is "light" (positions only) or "full" (adds aircraft
	// and route details for new flights).
	EndpointType string `yaml:"endpoint_type"`
}

// LocationConfig is the centre of the watched area.
type LocationConfig struct {
	CenterLat *float64 `yaml:"center_lat"`
	CenterLon *float64 `yaml:"center_lon"`

	// RadiusKm is the half-width of the bounding box. Defaults to 100.
	RadiusKm float64 `yaml:"radius_km"`

	// BoundingBoxKm is an older name for RadiusKm.
	BoundingBoxKm float64 `yaml:"bounding_box_km"`
}

// DisplayConfig controls polling and presentation.
type DisplayConfig struct {
	// RefreshInterval is the base poll interval. At least 5s, default 10s.
	// Bare integers are read as seconds.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// MaxBackoff caps the interval while failing. Defaults to 5m.
	MaxBackoff Duration `yaml:"max_backoff"`

	MaxFlights    int    `yaml:"max_flights"`
	SortBy        string `yaml:"sort_by"`
	SortAscending *bool  `yaml:"sort_ascending"`

	// FailureThreshold is the failure count at which the feed is reported
	// disconnected. Defaults to 5.
	FailureThreshold int `yaml:"failure_threshold"`

	// FilterRegion drops flights in the box corners, outside the radius.
	FilterRegion bool `yaml:"filter_region"`
}

// DetailsConfig controls the aircraft details cache.
type DetailsConfig struct {
	TTL Duration `yaml:"ttl"`

	// RedisAddr, when set, shares the cache through Redis.
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// On reports whether metrics are enabled. They are unless disabled.
func (m MetricsConfig) On() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
//
// Accepts duration strings ("10s", "1m") and bare integers as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Region returns the configured watch area.
func (c *Config) Region() flight.Region {
	r := flight.Region{RadiusKm: c.Location.RadiusKm}
	if c.Location.CenterLat != nil {
		r.CenterLat = *c.Location.CenterLat
	}
	if c.Location.CenterLon != nil {
		r.CenterLon = *c.Location.CenterLon
	}
	return r
}

// Ascending reports the configured sort direction, ascending by default.
func (d DisplayConfig) Ascending() bool {
	return d.SortAscending == nil || *d.SortAscending
}

// SearchPaths returns the locations [Find] checks, in order.
func SearchPaths() []string {
	paths := make([]string, 0, 3)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "flightboard", "config.yaml"))
	}
	return append(paths, "/etc/flightboard/config.yaml", "config.yaml")
}

// Find returns the first existing file from [SearchPaths].
func Find() (string, error) {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Demo returns a configuration for synthetic traffic around the given
// centre. It needs no file and no API key.
func Demo(lat, lon float64) *Config {
	cfg := &Config{
		Demo:     true,
		Location: LocationConfig{CenterLat: &lat, CenterLon: &lon},
		Display:  DisplayConfig{RefreshInterval: Duration(minRefreshInterval)},
	}
	cfg.applyDefaults()
	return cfg
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in api.key, api.base_url and
// details.redis_addr. Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expand() error {
	fields := []struct {
		name string
		val  *string
	}{
		{"api.key", &c.API.Key},
		{"api.base_url", &c.API.BaseURL},
		{"details.redis_addr", &c.Details.RedisAddr},
		{"tracing.endpoint", &c.Tracing.Endpoint},
	}
	for _, f := range fields {
		// a key from the environment makes ${FR24_API_KEY} in the file moot
		if f.name == "api.key" && os.Getenv(APIKeyEnv) != "" {
			*f.val = os.Getenv(APIKeyEnv)
			continue
		}
		expanded, err := expandEnvVars(*f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.val = expanded
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = source.DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(defaultTimeout)
	}
	if c.API.EndpointType == "" {
		c.API.EndpointType = source.EndpointLight
	}
	if c.Location.RadiusKm == 0 {
		c.Location.RadiusKm = c.Location.BoundingBoxKm
	}
	if c.Location.RadiusKm == 0 {
		c.Location.RadiusKm = defaultRadiusKm
	}
	if c.Display.RefreshInterval == 0 {
		c.Display.RefreshInterval = Duration(defaultRefreshInterval)
	}
	if c.Display.MaxFlights == 0 {
		c.Display.MaxFlights = defaultMaxFlights
	}
	if c.Display.SortBy == "" {
		c.Display.SortBy = string(flightboard.SortByDistance)
	}
	if c.Details.TTL == 0 {
		c.Details.TTL = Duration(time.Hour)
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = defaultTracingEndpoint
	}
}

// Validate checks every field. Error messages name the offending field.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if !c.Demo {
		if c.API.Key == "" || c.API.Key == source.PlaceholderKey {
			return fmt.Errorf("api.key must be set in the config file or the %s environment variable", APIKeyEnv)
		}
		u, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return fmt.Errorf("api.base_url: invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api.base_url scheme must be http or https, got %q", u.Scheme)
		}
	}
	if t := c.API.Timeout.Duration(); t < minTimeout || t > maxTimeout {
		return fmt.Errorf("api.timeout must be between %s and %s, got %s", minTimeout, maxTimeout, t)
	}
	if c.API.EndpointType != source.EndpointLight && c.API.EndpointType != source.EndpointFull {
		return fmt.Errorf("api.endpoint_type must be %q or %q, got %q",
			source.EndpointLight, source.EndpointFull, c.API.EndpointType)
	}

	if c.Location.CenterLat == nil {
		return errors.New("location.center_lat is required")
	}
	if c.Location.CenterLon == nil {
		return errors.New("location.center_lon is required")
	}
	if lat := *c.Location.CenterLat; lat < -90 || lat > 90 {
		return fmt.Errorf("location.center_lat must be between -90 and 90, got %g", lat)
	}
	if lon := *c.Location.CenterLon; lon < -180 || lon > 180 {
		return fmt.Errorf("location.center_lon must be between -180 and 180, got %g", lon)
	}
	if c.Location.RadiusKm < 0 {
		return fmt.Errorf("location.radius_km must be positive, got %g", c.Location.RadiusKm)
	}

	if ri := c.Display.RefreshInterval.Duration(); ri < minRefreshInterval {
		return fmt.Errorf("display.refresh_interval must be at least %s, got %s", minRefreshInterval, ri)
	}
	if mb := c.Display.MaxBackoff.Duration(); mb < 0 {
		return fmt.Errorf("display.max_backoff cannot be negative, got %s", mb)
	}
	if c.Display.MaxFlights < 0 {
		return fmt.Errorf("display.max_flights must be positive, got %d", c.Display.MaxFlights)
	}
	if c.Display.FailureThreshold < 0 {
		return fmt.Errorf("display.failure_threshold cannot be negative, got %d", c.Display.FailureThreshold)
	}
	if _, err := flightboard.ParseSortKey(c.Display.SortBy); err != nil {
		return fmt.Errorf("display.sort_by must be one of distance, altitude, callsign, speed, got %q", c.Display.SortBy)
	}

	if ttl := c.Details.TTL.Duration(); ttl < 0 {
		return fmt.Errorf("details.ttl cannot be negative, got %s", ttl)
	}

	if c.Tracing.Exporter != "stdout" && c.Tracing.Exporter != "otlp" {
		return fmt.Errorf("tracing.exporter must be stdout or otlp, got %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %g", c.Tracing.SampleRatio)
	}

	return nil
}
