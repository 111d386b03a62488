// Package config loads agrimarket service configuration.
//
// Configuration is layered, later layers overriding earlier ones:
//  1. Default values
//  2. Configuration file (JSON or YAML), when AGRI_CONFIG_FILE names one
//  3. Environment variables
//  4. Functional options, including WithConfigFile
//
// Example usage:
//
//	cfg, err := config.NewConfig(
//	    config.WithPort(8080),
//	    config.WithWeatherAPIKey(os.Getenv("OPENWEATHER_API_KEY")),
//	)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Memory providers
const (
	MemoryInMemory = "inmemory"
	MemoryRedis    = "redis"
	MemoryBadger   = "badger"
)

// Catalog sources
const (
	CatalogBuiltin  = "builtin"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// Advisor providers
const (
	AdvisorCanned = "canned"
	AdvisorGemini = "gemini"
)

// Config holds all configuration options for the service
type Config struct {
	Name    string `json:"name" yaml:"name"`
	Port    int    `json:"port" yaml:"port"`
	Address string `json:"address" yaml:"address"`

	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Auth        AuthConfig        `json:"auth" yaml:"auth"`
	Weather     WeatherConfig     `json:"weather" yaml:"weather"`
	Cart        CartConfig        `json:"cart" yaml:"cart"`
	Memory      MemoryConfig      `json:"memory" yaml:"memory"`
	Catalog     CatalogConfig     `json:"catalog" yaml:"catalog"`
	Advisor     AdvisorConfig     `json:"advisor" yaml:"advisor"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// HTTPConfig contains HTTP server timeouts and CORS settings
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing configuration.
// Supports wildcard subdomains (*.example.com) and ports (http://localhost:*).
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// AuthConfig controls how sessions established by the hosted auth flow are
// recognised. The service never authenticates users itself.
type AuthConfig struct {
	SessionHeader string `json:"session_header" yaml:"session_header"`
}

// WeatherConfig contains the weather provider settings. The API key stays on
// the server and is never sent to clients.
type WeatherConfig struct {
	Enabled         bool                 `json:"enabled" yaml:"enabled"`
	APIKey          string               `json:"api_key" yaml:"api_key"`
	BaseURL         string               `json:"base_url" yaml:"base_url"`
	Timeout         time.Duration        `json:"timeout" yaml:"timeout"`
	DefaultLocation string               `json:"default_location" yaml:"default_location"`
	CircuitBreaker  CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// CircuitBreakerConfig defines fail-fast settings for the weather upstream.
// An open breaker rejects calls; nothing is retried.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	Threshold        int           `json:"threshold" yaml:"threshold"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests"`
}

// CartConfig contains cart behaviour settings
type CartConfig struct {
	MergeDuplicates bool          `json:"merge_duplicates" yaml:"merge_duplicates"`
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
}

// MemoryConfig selects the cart storage provider
type MemoryConfig struct {
	Provider   string        `json:"provider" yaml:"provider"`
	RedisURL   string        `json:"redis_url" yaml:"redis_url"`
	BadgerPath string        `json:"badger_path" yaml:"badger_path"`
	Namespace  string        `json:"namespace" yaml:"namespace"`
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`
}

// CatalogConfig selects where catalog records come from
type CatalogConfig struct {
	Source      string `json:"source" yaml:"source"`
	SeedFile    string `json:"seed_file" yaml:"seed_file"`
	DatabaseURL string `json:"database_url" yaml:"database_url"`
}

// AdvisorConfig configures the disease detection and nutrition chat features
type AdvisorConfig struct {
	Provider      string        `json:"provider" yaml:"provider"`
	APIKey        string        `json:"api_key" yaml:"api_key"`
	Model         string        `json:"model" yaml:"model"`
	DiagnoseDelay time.Duration `json:"diagnose_delay" yaml:"diagnose_delay"`
	ChatDelay     time.Duration `json:"chat_delay" yaml:"chat_delay"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	ServiceName string  `json:"service_name" yaml:"service_name"`
	Insecure    bool    `json:"insecure" yaml:"insecure"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DevelopmentConfig contains settings for local development
type DevelopmentConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Option mutates a Config
type Option func(*Config) error

// DefaultConfig returns the baseline configuration
func DefaultConfig() *Config {
	return &Config{
		Name:    "agrimarket",
		Port:    8080,
		Address: "0.0.0.0",
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20, // leaf photos
			CORS: CORSConfig{
				Enabled:        false,
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID", "X-Correlation-ID"},
				MaxAge:         86400,
			},
		},
		Auth: AuthConfig{
			SessionHeader: "X-User-ID",
		},
		Weather: WeatherConfig{
			BaseURL:         "https://api.openweathermap.org/data/2.5",
			Timeout:         10 * time.Second,
			DefaultLocation: "Central Valley, CA",
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				Threshold:        5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Cart: CartConfig{
			MergeDuplicates: true,
			TTL:             7 * 24 * time.Hour,
		},
		Memory: MemoryConfig{
			Provider:   MemoryInMemory,
			Namespace:  "agrimarket",
			DefaultTTL: time.Hour,
		},
		Catalog: CatalogConfig{
			Source: CatalogBuiltin,
		},
		Advisor: AdvisorConfig{
			Provider:      AdvisorCanned,
			Model:         "gemini-2.5-flash",
			DiagnoseDelay: 3 * time.Second,
			ChatDelay:     time.Second,
			Timeout:       30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "agrimarket",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromEnv overlays environment variables onto the configuration
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("AGRI_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("AGRI_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return invalid("Config.LoadFromEnv", "port", "invalid AGRI_PORT %q", v)
		}
		c.Port = port
	} else if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("AGRI_ADDRESS"); v != "" {
		c.Address = v
	}

	// HTTP
	if d, ok := envDuration("AGRI_HTTP_READ_TIMEOUT"); ok {
		c.HTTP.ReadTimeout = d
	}
	if d, ok := envDuration("AGRI_HTTP_WRITE_TIMEOUT"); ok {
		c.HTTP.WriteTimeout = d
	}
	if d, ok := envDuration("AGRI_HTTP_SHUTDOWN_TIMEOUT"); ok {
		c.HTTP.ShutdownTimeout = d
	}
	if v := os.Getenv("AGRI_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("AGRI_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
		c.HTTP.CORS.Enabled = true
	}
	if v := os.Getenv("AGRI_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Auth
	if v := os.Getenv("AGRI_SESSION_HEADER"); v != "" {
		c.Auth.SessionHeader = v
	}

	// Weather
	if v := os.Getenv("AGRI_WEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
		c.Weather.Enabled = true
	} else if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
		c.Weather.Enabled = true
	}
	if v := os.Getenv("AGRI_WEATHER_BASE_URL"); v != "" {
		c.Weather.BaseURL = v
	}
	if d, ok := envDuration("AGRI_WEATHER_TIMEOUT"); ok {
		c.Weather.Timeout = d
	}
	if v := os.Getenv("AGRI_WEATHER_DEFAULT_LOCATION"); v != "" {
		c.Weather.DefaultLocation = v
	}
	if v := os.Getenv("AGRI_CB_ENABLED"); v != "" {
		c.Weather.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("AGRI_CB_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Weather.CircuitBreaker.Threshold = n
		}
	}
	if d, ok := envDuration("AGRI_CB_TIMEOUT"); ok {
		c.Weather.CircuitBreaker.Timeout = d
	}

	// Cart
	if v := os.Getenv("AGRI_CART_MERGE_DUPLICATES"); v != "" {
		c.Cart.MergeDuplicates = parseBool(v)
	}
	if d, ok := envDuration("AGRI_CART_TTL"); ok {
		c.Cart.TTL = d
	}

	// Memory
	if v := os.Getenv("AGRI_MEMORY_PROVIDER"); v != "" {
		c.Memory.Provider = v
	}
	if v := os.Getenv("AGRI_REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
	}
	if v := os.Getenv("AGRI_BADGER_PATH"); v != "" {
		c.Memory.BadgerPath = v
	}

	// Catalog
	if v := os.Getenv("AGRI_CATALOG_SOURCE"); v != "" {
		c.Catalog.Source = v
	}
	if v := os.Getenv("AGRI_CATALOG_FILE"); v != "" {
		c.Catalog.SeedFile = v
	}
	if v := os.Getenv("AGRI_DATABASE_URL"); v != "" {
		c.Catalog.DatabaseURL = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Catalog.DatabaseURL = v
	}

	// Advisor
	if v := os.Getenv("AGRI_ADVISOR_PROVIDER"); v != "" {
		c.Advisor.Provider = v
	}
	if v := os.Getenv("AGRI_ADVISOR_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("AGRI_ADVISOR_MODEL"); v != "" {
		c.Advisor.Model = v
	}
	if d, ok := envDuration("AGRI_ADVISOR_DIAGNOSE_DELAY"); ok {
		c.Advisor.DiagnoseDelay = d
	}
	if d, ok := envDuration("AGRI_ADVISOR_CHAT_DELAY"); ok {
		c.Advisor.ChatDelay = d
	}

	// Telemetry
	if v := os.Getenv("AGRI_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("AGRI_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	// Logging
	if v := os.Getenv("AGRI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	} else if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AGRI_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	// Development
	if v := os.Getenv("AGRI_DEV_MODE"); v != "" {
		c.applyDevelopment(parseBool(v))
	}

	return nil
}

func (c *Config) applyDevelopment(enabled bool) {
	c.Development.Enabled = enabled
	if enabled {
		c.Logging.Level = "debug"
		c.Logging.Format = "console"
		c.Advisor.DiagnoseDelay = 0
		c.Advisor.ChatDelay = 0
	}
}

// LoadFromFile reads a JSON or YAML configuration file over the current values
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return invalid("Config.LoadFromFile", "", "unsupported config file extension %q", ext)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return &Error{Op: "Config.LoadFromFile", Message: fmt.Sprintf("failed to parse JSON config file: %v", err), Err: ErrInvalidConfiguration}
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return &Error{Op: "Config.LoadFromFile", Message: fmt.Sprintf("failed to parse YAML config file: %v", err), Err: ErrInvalidConfiguration}
		}
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	const op = "Config.Validate"

	if c.Port < 1 || c.Port > 65535 {
		return invalid(op, "port", "invalid port: %d", c.Port)
	}
	if c.Name == "" {
		return missing(op, "name", "service name is required")
	}
	if c.Auth.SessionHeader == "" {
		return missing(op, "auth.session_header", "session header name is required")
	}

	if c.Weather.Enabled {
		if c.Weather.APIKey == "" {
			return missing(op, "weather.api_key", "weather API key is required when weather is enabled (set OPENWEATHER_API_KEY)")
		}
		if c.Weather.BaseURL == "" {
			return missing(op, "weather.base_url", "weather base URL is required")
		}
	}
	if c.Weather.CircuitBreaker.Enabled && c.Weather.CircuitBreaker.Threshold < 1 {
		return invalid(op, "weather.circuit_breaker.threshold", "circuit breaker threshold must be positive: %d", c.Weather.CircuitBreaker.Threshold)
	}

	switch c.Memory.Provider {
	case MemoryInMemory, MemoryBadger:
	case MemoryRedis:
		if c.Memory.RedisURL == "" {
			return missing(op, "memory.redis_url", "redis URL is required for the redis memory provider")
		}
	default:
		return invalid(op, "memory.provider", "unknown memory provider %q", c.Memory.Provider)
	}

	switch c.Catalog.Source {
	case CatalogBuiltin:
	case CatalogFile:
		if c.Catalog.SeedFile == "" {
			return missing(op, "catalog.seed_file", "catalog seed file is required for the file source")
		}
	case CatalogPostgres:
		if c.Catalog.DatabaseURL == "" {
			return missing(op, "catalog.database_url", "database URL is required for the postgres catalog source")
		}
	default:
		return invalid(op, "catalog.source", "unknown catalog source %q", c.Catalog.Source)
	}

	switch c.Advisor.Provider {
	case AdvisorCanned:
	case AdvisorGemini:
		if c.Advisor.APIKey == "" {
			return missing(op, "advisor.api_key", "advisor API key is required for the gemini provider (set GEMINI_API_KEY)")
		}
	default:
		return invalid(op, "advisor.provider", "unknown advisor provider %q", c.Advisor.Provider)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" && !c.Development.Enabled {
		return missing(op, "telemetry.endpoint", "telemetry endpoint is required when telemetry is enabled")
	}

	return nil
}

// ListenAddress returns host:port for the HTTP server
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// parseStringList splits a comma-separated string, dropping empty entries
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// NewConfig builds a validated configuration from defaults, the optional
// config file, the environment and opts.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("AGRI_CONFIG_FILE"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
