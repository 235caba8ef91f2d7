package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/details"
	"github.com/jpalmerr/flightboard/internal/observability"
	"github.com/jpalmerr/flightboard/internal/source"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The source is not included; pair these with [BuildSource].
func BuildOptions(cfg *Config) []flightboard.Option {
	opts := []flightboard.Option{
		flightboard.WithPort(cfg.Port),
		flightboard.WithRegion(cfg.Region()),
		flightboard.WithRefreshInterval(cfg.Display.RefreshInterval.Duration()),
		flightboard.WithMaxFlights(cfg.Display.MaxFlights),
		flightboard.WithSort(flightboard.SortKey(cfg.Display.SortBy), cfg.Display.Ascending()),
		// one positions request plus at most one details request
		flightboard.WithFetchTimeout(2 * cfg.API.Timeout.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, flightboard.WithTitle(cfg.Title))
	}
	if cfg.Display.MaxBackoff != 0 {
		opts = append(opts, flightboard.WithMaxBackoff(cfg.Display.MaxBackoff.Duration()))
	}
	if cfg.Display.FailureThreshold != 0 {
		opts = append(opts, flightboard.WithFailureThreshold(cfg.Display.FailureThreshold))
	}
	if cfg.Display.FilterRegion {
		opts = append(opts, flightboard.WithFilterRegion())
	}
	if cfg.Demo {
		opts = append(opts, flightboard.WithDemo())
	}

	return opts
}

// BuildSource picks the flight source for cfg: the synthetic generator in
// demo mode, otherwise the FR24 client behind a details cache. Redis backs
// the cache when details.redis_addr is set.
//
// The returned close function releases the HTTP client and any Redis
// connection. It is always safe to call.
func BuildSource(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Collector) (flight.Source, func() error, error) {
	noop := func() error { return nil }

	if cfg.Demo {
		return source.NewDemo(source.DemoConfig{Region: cfg.Region()}), noop, nil
	}

	fr24, err := source.NewFR24(source.FR24Config{
		APIKey:       cfg.API.Key,
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout.Duration(),
		EndpointType: cfg.API.EndpointType,
	}, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create FR24 client: %w", err)
	}

	var store details.Store
	closeFn := func() error {
		fr24.Close()
		return nil
	}
	if cfg.Details.RedisAddr != "" {
		rc, err := details.NewRedisCache(ctx, details.RedisConfig{
			Addr: cfg.Details.RedisAddr,
			DB:   cfg.Details.RedisDB,
			TTL:  cfg.Details.TTL.Duration(),
		})
		if err != nil {
			fr24.Close()
			return nil, noop, fmt.Errorf("details cache: %w", err)
		}
		store = rc
		closeFn = func() error {
			fr24.Close()
			return rc.Close()
		}
		logger.Info("using redis details cache", "addr", cfg.Details.RedisAddr)
	} else {
		store = details.NewCache(cfg.Details.TTL.Duration())
	}

	opts := []source.EnricherOption{source.WithEnricherMetrics(metrics)}
	if fr24.WantsDetails() {
		opts = append(opts, source.WithDetailsFetcher(fr24))
	}
	return source.NewEnricher(fr24, store, logger, opts...), closeFn, nil
}
