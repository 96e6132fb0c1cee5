package dashboard

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

// Service produces one merged dashboard per request.
type Service interface {
	Aggregate(ctx context.Context, hints ClientHints) (DashboardData, error)
}

// IPEchoClient resolves the caller's public address when the inbound
// headers only expose a private one.
type IPEchoClient interface {
	PublicIP(ctx context.Context) (string, error)
}

// GeoClient maps an IP to city/region/coordinates/timezone/ISP info.
type GeoClient interface {
	Locate(ctx context.Context, ip string) (GeoData, error)
}

// WeatherClient fetches the 7-day forecast for a coordinate pair.
type WeatherClient interface {
	Forecast(ctx context.Context, lat, lon float64, timezone string) (WeatherData, error)
}

// AirQualityClient fetches current pollutant levels and AQI indices.
type AirQualityClient interface {
	CurrentAirQuality(ctx context.Context, lat, lon float64) (AirQualityData, error)
}

// CountryClient fetches the country profile for a 2-letter code.
type CountryClient interface {
	Profile(ctx context.Context, countryCode string) (CountryData, error)
}

type service struct {
	cfg     Config
	ipEcho  IPEchoClient
	geo     GeoClient
	weather WeatherClient
	air     AirQualityClient
	country CountryClient
	logger  *slog.Logger
}

// NewService wires up the aggregation domain.
func NewService(cfg Config, ipEcho IPEchoClient, geo GeoClient, weather WeatherClient, air AirQualityClient, country CountryClient, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		ipEcho:  ipEcho,
		geo:     geo,
		weather: weather,
		air:     air,
		country: country,
		logger:  logger.With("component", "dashboard.service"),
	}
}

// Aggregate runs the sequential IP→geolocation steps, then fans out the
// three location-keyed fetches together. Any failure fails the whole
// request; partial payloads are never returned.
func (s *service) Aggregate(ctx context.Context, hints ClientHints) (DashboardData, error) {
	ip := resolveClientIP(hints, s.cfg.FallbackIP)
	if needsPublicLookup(ip) {
		public, err := s.ipEcho.PublicIP(ctx)
		if err != nil {
			return DashboardData{}, apperrors.Wrap("upstream_unavailable", "public ip lookup failed", err)
		}
		s.logger.Debug("replaced private address with echoed public ip", "resolved", public)
		ip = public
	}

	geo, err := s.geo.Locate(ctx, ip)
	if err != nil {
		return DashboardData{}, err
	}

	var (
		weather WeatherData
		air     AirQualityData
		country CountryData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weather, err = s.weather.Forecast(gctx, geo.Lat, geo.Lon, geo.Timezone)
		return err
	})
	g.Go(func() error {
		var err error
		air, err = s.air.CurrentAirQuality(gctx, geo.Lat, geo.Lon)
		return err
	})
	g.Go(func() error {
		var err error
		country, err = s.country.Profile(gctx, geo.CountryCode)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardData{}, err
	}

	s.logger.Info("dashboard aggregated", "ip", ip, "city", geo.City, "country", geo.CountryCode)
	return DashboardData{
		IP:         IPData{IP: ip},
		Geo:        geo,
		Weather:    weather,
		AirQuality: air,
		Country:    country,
	}, nil
}
