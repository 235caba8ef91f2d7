package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

const (
	// DefaultBaseURL is the FlightRadar24 API root.
	DefaultBaseURL = "https://fr24api.flightradar24.com/api"

	// PlaceholderKey is the value shipped in the sample config; it is never
	// accepted as a real key.
	PlaceholderKey = "your-fr24-api-key-here"

	// MaxDetailsCallsigns is the provider's limit on callsigns per details
	// request.
	MaxDetailsCallsigns = 15

	// EndpointLight returns positions only.
	EndpointLight = "light"

	// EndpointFull returns positions plus aircraft and route details.
	EndpointFull = "full"
)

// FR24Config configures the FlightRadar24 client.
type FR24Config struct {
	APIKey  string
	BaseURL string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration

	// EndpointType is EndpointLight or EndpointFull. It decides whether
	// details are fetched for new flights; positions always come from the
	// light endpoint.
	EndpointType string

	// Limit caps the number of flights per request. Zero means 100.
	Limit int
}

// FR24 is the live [flight.Source] backed by the FlightRadar24 API.
type FR24 struct {
	client *Client
	cfg    FR24Config
	logger *slog.Logger
}

// NewFR24 creates an FR24 client. The API key must be set and must not be
// the sample placeholder.
func NewFR24(cfg FR24Config, logger *slog.Logger) (*FR24, error) {
	if cfg.APIKey == "" || cfg.APIKey == PlaceholderKey {
		return nil, errors.New("FR24 API key not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EndpointType == "" {
		cfg.EndpointType = EndpointLight
	}
	if cfg.EndpointType != EndpointLight && cfg.EndpointType != EndpointFull {
		return nil, fmt.Errorf("endpoint type must be %q or %q, got %q", EndpointLight, EndpointFull, cfg.EndpointType)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FR24{
		client: NewClient(map[string]string{
			"Accept":         "application/json",
			"Accept-Version": "v1",
			"Authorization":  "Bearer " + cfg.APIKey,
		}),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Fetch returns live positions inside bounds from the light endpoint.
func (c *FR24) Fetch(ctx context.Context, bounds flight.BoundingBox) ([]flight.Flight, error) {
	q := url.Values{}
	q.Set("bounds", bounds.String())
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	return c.fetchFlights(ctx, EndpointLight, q)
}

// Details fetches full records for up to [MaxDetailsCallsigns] callsigns.
// Extra callsigns are ignored.
func (c *FR24) Details(ctx context.Context, callsigns []string) ([]flight.Flight, error) {
	if len(callsigns) == 0 {
		return nil, nil
	}
	if len(callsigns) > MaxDetailsCallsigns {
		callsigns = callsigns[:MaxDetailsCallsigns]
	}
	q := url.Values{}
	q.Set("callsigns", strings.Join(callsigns, ","))
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	return c.fetchFlights(ctx, EndpointFull, q)
}

// WantsDetails reports whether details should be fetched for new flights.
func (c *FR24) WantsDetails() bool {
	return c.cfg.EndpointType == EndpointFull
}

// Close releases pooled connections.
func (c *FR24) Close() {
	c.client.Close()
}

func (c *FR24) fetchFlights(ctx context.Context, endpointType string, q url.Values) ([]flight.Flight, error) {
	endpoint := c.cfg.BaseURL + "/live/flight-positions/" + endpointType
	c.logger.Debug("fetching flights", "endpoint", endpoint, "params", q.Encode())

	resp, err := c.client.Get(ctx, endpoint, q, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	flights, err := parseFlights(resp.Body, c.logger)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("parsed flights", "count", len(flights), "latency", resp.Latency.String())
	return flights, nil
}

// parseFlights decodes a flight-positions payload. The provider has used
// several spellings for the same field across API versions; each reader
// below accepts all of them. Items that are not objects are skipped.
func parseFlights(body []byte, logger *slog.Logger) ([]flight.Flight, error) {
	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, flight.NewFetchError(flight.ErrMalformed, "Malformed response", err)
	}

	flights := make([]flight.Flight, 0, len(payload.Data))
	for _, raw := range payload.Data {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			logger.Warn("skipping unparseable flight item", "item", string(raw))
			continue
		}
		flights = append(flights, parseItem(item))
	}
	return flights, nil
}

func parseItem(item map[string]any) flight.Flight {
	callsign := strings.TrimSpace(str(item, "callsign"))
	f := flight.Flight{
		ID:           str(item, "fr24_id", "flightId", "id"),
		Callsign:     callsign,
		Airline:      airline(item, callsign),
		AircraftType: aircraftType(item),
		Origin:       airport(item, "origin", "orig_iata", "origin_iata"),
		Destination:  airport(item, "destination", "dest_iata", "destination_iata"),
		Registration: str(item, "registration", "hex"),
		Latitude:     num(item, "lat", "latitude"),
		Longitude:    num(item, "lon", "longitude"),
		Altitude:     int(math.Round(num(item, "alt", "altitude"))),
		GroundSpeed:  int(math.Round(num(item, "gspeed", "groundSpeed", "speed"))),
		Heading:      int(math.Round(num(item, "track", "heading"))),
	}
	if v, ok := item["vspeed"]; ok && v != nil {
		vs := int(math.Round(toFloat(v)))
		f.VerticalSpeed = &vs
	}
	return f
}

// str returns the first non-empty value among keys, formatted as a string.
func str(item map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := item[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

// num returns the first non-zero numeric value among keys.
func num(item map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v := toFloat(item[k]); v != 0 {
			return v
		}
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func airline(item map[string]any, callsign string) string {
	switch v := item["airline"].(type) {
	case map[string]any:
		return str(v, "icao", "iata")
	case string:
		if v != "" {
			return v
		}
	}
	if len(callsign) >= 3 {
		return callsign[:3]
	}
	return ""
}

func aircraftType(item map[string]any) string {
	if ac, ok := item["aircraft"].(map[string]any); ok {
		switch model := ac["model"].(type) {
		case map[string]any:
			return str(model, "code")
		case string:
			return model
		}
		return ""
	}
	return str(item, "typecode", "aircraft_type", "type")
}

func airport(item map[string]any, field string, flatKeys ...string) string {
	if ap, ok := item[field].(map[string]any); ok {
		return str(ap, "iata", "icao")
	}
	if s, ok := item[field].(string); ok && s != "" {
		return s
	}
	return str(item, flatKeys...)
}
