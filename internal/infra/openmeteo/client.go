package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elnurm/ip2data/internal/domain/dashboard"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

const (
	defaultForecastURL   = "https://api.open-meteo.com"
	defaultAirQualityURL = "https://air-quality-api.open-meteo.com"

	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,is_day,precipitation,rain,weather_code,cloud_cover,wind_speed_10m,wind_direction_10m,wind_gusts_10m,surface_pressure,visibility,uv_index"
	dailyFields   = "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,uv_index_max,sunrise,sunset,daylight_duration"
	airFields     = "pm10,pm2_5,carbon_monoxide,nitrogen_dioxide,ozone,european_aqi,us_aqi"

	forecastDays = 7
)

// ForecastClient fetches the 7-day forecast from Open-Meteo.
type ForecastClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewForecastClient builds a forecast client.
func NewForecastClient(baseURL string) *ForecastClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultForecastURL
	}
	return &ForecastClient{
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Forecast retrieves current conditions plus the daily series for the
// given coordinates, rendered in the given timezone.
func (c *ForecastClient) Forecast(ctx context.Context, lat, lon float64, timezone string) (dashboard.WeatherData, error) {
	query := url.Values{}
	query.Set("latitude", formatCoord(lat))
	query.Set("longitude", formatCoord(lon))
	query.Set("current", currentFields)
	query.Set("daily", dailyFields)
	query.Set("timezone", timezone)
	query.Set("forecast_days", strconv.Itoa(forecastDays))

	var weather dashboard.WeatherData
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/forecast?"+query.Encode(), "weather", &weather); err != nil {
		return dashboard.WeatherData{}, err
	}
	if err := checkDailyAlignment(weather.Daily); err != nil {
		return dashboard.WeatherData{}, apperrors.Wrap("upstream_unavailable", "weather daily series misaligned", err)
	}
	return weather, nil
}

// AirQualityClient fetches current pollutant data from the Open-Meteo
// air quality host.
type AirQualityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAirQualityClient builds an air quality client.
func NewAirQualityClient(baseURL string) *AirQualityClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultAirQualityURL
	}
	return &AirQualityClient{
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CurrentAirQuality retrieves pollutant concentrations and both AQI
// scales for the given coordinates.
func (c *AirQualityClient) CurrentAirQuality(ctx context.Context, lat, lon float64) (dashboard.AirQualityData, error) {
	query := url.Values{}
	query.Set("latitude", formatCoord(lat))
	query.Set("longitude", formatCoord(lon))
	query.Set("current", airFields)

	var air dashboard.AirQualityData
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/air-quality?"+query.Encode(), "air quality", &air); err != nil {
		return dashboard.AirQualityData{}, err
	}
	return air, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint, label string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", label, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.Wrap("upstream_unavailable", label+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return apperrors.Wrap("upstream_unavailable",
			fmt.Sprintf("%s request error: status=%d body=%s", label, resp.StatusCode, string(payload)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap("upstream_unavailable", "decode "+label+" response", err)
	}
	return nil
}

func checkDailyAlignment(daily dashboard.DailyForecast) error {
	days := len(daily.Time)
	lengths := map[string]int{
		"weather_code":       len(daily.WeatherCode),
		"temperature_2m_max": len(daily.Temperature2mMax),
		"temperature_2m_min": len(daily.Temperature2mMin),
		"precipitation_sum":  len(daily.PrecipitationSum),
		"wind_speed_10m_max": len(daily.WindSpeed10mMax),
		"uv_index_max":       len(daily.UVIndexMax),
		"sunrise":            len(daily.Sunrise),
		"sunset":             len(daily.Sunset),
		"daylight_duration":  len(daily.DaylightDuration),
	}
	for name, n := range lengths {
		if n != days {
			return fmt.Errorf("series %s has %d entries, expected %d", name, n, days)
		}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
