package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	LLM       LLMConfig       `yaml:"llm"`
	Conductor ConductorConfig `yaml:"conductor"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// DashboardConfig sets the fallback IP and upstream base URLs for the
// aggregation endpoint. Empty URLs fall back to the public services.
type DashboardConfig struct {
	FallbackIP    string `yaml:"fallbackIp"`
	IPEchoURL     string `yaml:"ipEchoUrl"`
	GeoIPURL      string `yaml:"geoIpUrl"`
	WeatherURL    string `yaml:"weatherUrl"`
	AirQualityURL string `yaml:"airQualityUrl"`
	CountryURL    string `yaml:"countryUrl"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// ConductorConfig controls the transit assistant behavior.
type ConductorConfig struct {
	SessionTTL         time.Duration  `yaml:"sessionTtl"`
	SearchRadiusMeters int            `yaml:"searchRadiusMeters"`
	NearestLimit       int            `yaml:"nearestLimit"`
	Valkey             ValkeyConfig   `yaml:"valkey"`
	Postgres           PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for session storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings for transit data.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("DASHBOARD_FALLBACK_IP"); v != "" {
		cfg.Dashboard.FallbackIP = v
	}
	if v := os.Getenv("DASHBOARD_IP_ECHO_URL"); v != "" {
		cfg.Dashboard.IPEchoURL = v
	}
	if v := os.Getenv("DASHBOARD_GEOIP_URL"); v != "" {
		cfg.Dashboard.GeoIPURL = v
	}
	if v := os.Getenv("DASHBOARD_WEATHER_URL"); v != "" {
		cfg.Dashboard.WeatherURL = v
	}
	if v := os.Getenv("DASHBOARD_AIR_QUALITY_URL"); v != "" {
		cfg.Dashboard.AirQualityURL = v
	}
	if v := os.Getenv("DASHBOARD_COUNTRY_URL"); v != "" {
		cfg.Dashboard.CountryURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("CONDUCTOR_SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Conductor.SessionTTL = parsed
		}
	}
	if v := os.Getenv("CONDUCTOR_SEARCH_RADIUS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Conductor.SearchRadiusMeters = parsed
		}
	}
	if v := os.Getenv("CONDUCTOR_NEAREST_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Conductor.NearestLimit = parsed
		}
	}
	if v := os.Getenv("CONDUCTOR_VALKEY_ENABLED"); v != "" {
		cfg.Conductor.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CONDUCTOR_VALKEY_ADDR"); v != "" {
		cfg.Conductor.Valkey.Addr = v
	}
	if v := os.Getenv("CONDUCTOR_POSTGRES_DSN"); v != "" {
		cfg.Conductor.Postgres.DSN = v
	}
	if v := os.Getenv("CONDUCTOR_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Conductor.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CONDUCTOR_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Conductor.Postgres.MinConns = int32(parsed)
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Dashboard: DashboardConfig{
			FallbackIP: "8.8.8.8",
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Conductor: ConductorConfig{
			SessionTTL:         30 * time.Minute,
			SearchRadiusMeters: 1000,
			NearestLimit:       3,
			Valkey: ValkeyConfig{
				Enabled: false,
				Addr:    "",
			},
			Postgres: PostgresConfig{
				DSN:      "",
				MaxConns: 4,
				MinConns: 0,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Dashboard.FallbackIP) == "" {
		return errors.New("dashboard.fallbackIp cannot be empty")
	}
	if c.Conductor.SessionTTL <= 0 {
		return errors.New("conductor.sessionTtl must be positive")
	}
	if c.Conductor.SearchRadiusMeters <= 0 {
		return errors.New("conductor.searchRadiusMeters must be positive")
	}
	if c.Conductor.NearestLimit <= 0 {
		return errors.New("conductor.nearestLimit must be positive")
	}
	if c.Conductor.Valkey.Enabled && strings.TrimSpace(c.Conductor.Valkey.Addr) == "" {
		return errors.New("conductor.valkey.addr cannot be empty when the session store is enabled")
	}
	return nil
}
