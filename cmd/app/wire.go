//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/elnurm/ip2data/internal/bootstrap"
	"github.com/elnurm/ip2data/internal/domain/conductor"
	"github.com/elnurm/ip2data/internal/domain/dashboard"
	"github.com/elnurm/ip2data/internal/infra/config"
	"github.com/elnurm/ip2data/internal/infra/geoip"
	"github.com/elnurm/ip2data/internal/infra/ipecho"
	"github.com/elnurm/ip2data/internal/infra/llm/chatgpt"
	"github.com/elnurm/ip2data/internal/infra/openmeteo"
	"github.com/elnurm/ip2data/internal/infra/restcountries"
	httpiface "github.com/elnurm/ip2data/internal/interface/http"
	"github.com/elnurm/ip2data/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideDashboardConfig,
		provideConductorConfig,
		provideChatGPTClient,
		provideIPEchoClient,
		provideGeoClient,
		provideForecastClient,
		provideAirQualityClient,
		provideCountryClient,
		provideSessionStore,
		provideTransitStore,
		dashboard.NewService,
		conductor.NewService,
		wire.Bind(new(dashboard.IPEchoClient), new(*ipecho.Client)),
		wire.Bind(new(dashboard.GeoClient), new(*geoip.Client)),
		wire.Bind(new(dashboard.WeatherClient), new(*openmeteo.ForecastClient)),
		wire.Bind(new(dashboard.AirQualityClient), new(*openmeteo.AirQualityClient)),
		wire.Bind(new(dashboard.CountryClient), new(*restcountries.Client)),
		wire.Bind(new(conductor.ChatClient), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
