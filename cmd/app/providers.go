package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/elnurm/ip2data/internal/domain/conductor"
	"github.com/elnurm/ip2data/internal/domain/dashboard"
	"github.com/elnurm/ip2data/internal/infra/config"
	"github.com/elnurm/ip2data/internal/infra/geoip"
	"github.com/elnurm/ip2data/internal/infra/ipecho"
	"github.com/elnurm/ip2data/internal/infra/llm/chatgpt"
	"github.com/elnurm/ip2data/internal/infra/openmeteo"
	"github.com/elnurm/ip2data/internal/infra/restcountries"
	"github.com/elnurm/ip2data/internal/infra/sessionstore"
	"github.com/elnurm/ip2data/internal/infra/transit"
)

func provideDashboardConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		FallbackIP: cfg.Dashboard.FallbackIP,
	}
}

func provideConductorConfig(cfg *config.Config) conductor.Config {
	return conductor.Config{
		Model:              cfg.LLM.Model,
		Temperature:        cfg.LLM.Temperature,
		SessionTTL:         cfg.Conductor.SessionTTL,
		SearchRadiusMeters: cfg.Conductor.SearchRadiusMeters,
		NearestLimit:       cfg.Conductor.NearestLimit,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideIPEchoClient(cfg *config.Config) *ipecho.Client {
	return ipecho.NewClient(cfg.Dashboard.IPEchoURL)
}

func provideGeoClient(cfg *config.Config) *geoip.Client {
	return geoip.NewClient(cfg.Dashboard.GeoIPURL)
}

func provideForecastClient(cfg *config.Config) *openmeteo.ForecastClient {
	return openmeteo.NewForecastClient(cfg.Dashboard.WeatherURL)
}

func provideAirQualityClient(cfg *config.Config) *openmeteo.AirQualityClient {
	return openmeteo.NewAirQualityClient(cfg.Dashboard.AirQualityURL)
}

func provideCountryClient(cfg *config.Config) *restcountries.Client {
	return restcountries.NewClient(cfg.Dashboard.CountryURL)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) conductor.SessionStore {
	if cfg.Conductor.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey session store enabled", "addr", cfg.Conductor.Valkey.Addr)
			return sessionstore.NewValkeyStore(client, "conductor")
		}
	}
	return sessionstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Conductor.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Conductor.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Conductor.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideTransitStore(cfg *config.Config, logger *slog.Logger) conductor.TransitStore {
	dsn := strings.TrimSpace(cfg.Conductor.Postgres.DSN)
	if dsn == "" {
		logger.Info("transit postgres dsn not set, using seeded memory store")
		return transit.SeedStore()
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using seeded memory store", "error", err)
		return transit.SeedStore()
	}
	if cfg.Conductor.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Conductor.Postgres.MaxConns
	}
	if cfg.Conductor.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Conductor.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using seeded memory store", "error", err)
		return transit.SeedStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using seeded memory store", "error", err)
		pool.Close()
		return transit.SeedStore()
	}
	logger.Info("transit postgres store enabled")
	return transit.NewPostgresStore(pool)
}
