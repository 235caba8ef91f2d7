// Package fr24mock serves a fake FlightRadar24 live positions API backed by
// the synthetic demo traffic, for trying the board without an API key.
package fr24mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/source"
)

// Config controls the mock's traffic and fault injection.
type Config struct {
	Region flight.Region

	// APIKey, when set, must be presented as a bearer token.
	APIKey string

	// FailEvery answers every Nth request with 503. Zero disables it.
	FailEvery int

	// RateLimitEvery answers every Nth request with 429. Zero disables it.
	RateLimitEvery int
}

type position struct {
	ID       string  `json:"fr24_id"`
	Callsign string  `json:"callsign"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Track    int     `json:"track"`
	Alt      int     `json:"alt"`
	GSpeed   int     `json:"gspeed"`
	VSpeed   *int    `json:"vspeed,omitempty"`
	Reg      string  `json:"registration,omitempty"`

	// full endpoint only
	Type     string `json:"type,omitempty"`
	Airline  string `json:"airline,omitempty"`
	OrigIATA string `json:"orig_iata,omitempty"`
	DestIATA string `json:"dest_iata,omitempty"`
}

// Handler returns the mock API routes.
func Handler(cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	demo := source.NewDemo(source.DemoConfig{Region: cfg.Region})
	var (
		requests atomic.Int64
		mu       sync.Mutex
		last     []flight.Flight
	)

	serve := func(full bool) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			n := requests.Add(1)

			if cfg.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+cfg.APIKey {
				http.Error(w, `{"message":"Unauthenticated."}`, http.StatusUnauthorized)
				return
			}
			if cfg.RateLimitEvery > 0 && n%int64(cfg.RateLimitEvery) == 0 {
				logger.Info("injecting rate limit", "request", n)
				http.Error(w, `{"message":"Too Many Attempts."}`, http.StatusTooManyRequests)
				return
			}
			if cfg.FailEvery > 0 && n%int64(cfg.FailEvery) == 0 {
				logger.Info("injecting failure", "request", n)
				http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
				return
			}

			var flights []flight.Flight
			if callsigns := r.URL.Query().Get("callsigns"); full && callsigns != "" {
				// details describe the flights the last positions request returned
				mu.Lock()
				flights = onlyCallsigns(last, callsigns)
				mu.Unlock()
			} else {
				fetched, err := demo.Fetch(r.Context(), flight.BoundingBox{})
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				mu.Lock()
				last = fetched
				mu.Unlock()
				flights = fetched
			}

			data := make([]position, 0, len(flights))
			for _, f := range flights {
				p := position{
					ID: f.ID, Callsign: f.Callsign, Lat: f.Latitude, Lon: f.Longitude,
					Track: f.Heading, Alt: f.Altitude, GSpeed: f.GroundSpeed, VSpeed: f.VerticalSpeed,
					Reg: f.Registration,
				}
				if full {
					p.Type, p.Airline, p.OrigIATA, p.DestIATA = f.AircraftType, f.Airline, f.Origin, f.Destination
				}
				data = append(data, p)
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
				logger.Error("failed to write response", "error", err)
			}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/live/flight-positions/light", serve(false))
	mux.HandleFunc("/live/flight-positions/full", serve(true))
	return mux
}

// ListenAndServe runs the mock on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, cfg Config, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: Handler(cfg, logger)}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func onlyCallsigns(flights []flight.Flight, list string) []flight.Flight {
	if list == "" {
		return flights
	}
	want := make(map[string]struct{})
	for _, cs := range strings.Split(list, ",") {
		want[strings.TrimSpace(cs)] = struct{}{}
	}
	var out []flight.Flight
	for _, f := range flights {
		if _, ok := want[f.Callsign]; ok {
			out = append(out, f)
		}
	}
	return out
}
