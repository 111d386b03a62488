package config

import "time"

// WithName sets the service name used in logs and telemetry
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP server port
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return invalid("WithPort", "port", "invalid port: %d", port)
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address for the HTTP server
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithCORS enables CORS with specific allowed origins
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithWeatherAPIKey sets the weather provider key and enables the weather feature
func WithWeatherAPIKey(key string) Option {
	return func(c *Config) error {
		c.Weather.APIKey = key
		c.Weather.Enabled = key != ""
		return nil
	}
}

// WithWeatherBaseURL points the weather client at another endpoint
func WithWeatherBaseURL(url string) Option {
	return func(c *Config) error {
		c.Weather.BaseURL = url
		return nil
	}
}

// WithCircuitBreaker configures fail-fast behaviour for the weather upstream
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		c.Weather.CircuitBreaker.Enabled = threshold > 0
		c.Weather.CircuitBreaker.Threshold = threshold
		c.Weather.CircuitBreaker.Timeout = timeout
		return nil
	}
}

// WithMemoryProvider selects the cart storage provider
func WithMemoryProvider(provider string) Option {
	return func(c *Config) error {
		c.Memory.Provider = provider
		return nil
	}
}

// WithRedisURL selects redis cart storage at url
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Memory.Provider = MemoryRedis
		c.Memory.RedisURL = url
		return nil
	}
}

// WithBadgerPath selects embedded badger cart storage at path
func WithBadgerPath(path string) Option {
	return func(c *Config) error {
		c.Memory.Provider = MemoryBadger
		c.Memory.BadgerPath = path
		return nil
	}
}

// WithCatalogFile loads catalogs from a YAML seed file
func WithCatalogFile(path string) Option {
	return func(c *Config) error {
		c.Catalog.Source = CatalogFile
		c.Catalog.SeedFile = path
		return nil
	}
}

// WithCatalogDatabase loads catalogs from PostgreSQL
func WithCatalogDatabase(dsn string) Option {
	return func(c *Config) error {
		c.Catalog.Source = CatalogPostgres
		c.Catalog.DatabaseURL = dsn
		return nil
	}
}

// WithMergeDuplicates controls whether adding an item already in the cart
// increments its quantity instead of appending a second line
func WithMergeDuplicates(merge bool) Option {
	return func(c *Config) error {
		c.Cart.MergeDuplicates = merge
		return nil
	}
}

// WithAdvisor selects the advisor provider
func WithAdvisor(provider, apiKey string) Option {
	return func(c *Config) error {
		c.Advisor.Provider = provider
		c.Advisor.APIKey = apiKey
		return nil
	}
}

// WithSimulatedLatency sets the artificial delays of the canned advisor
func WithSimulatedLatency(diagnose, chat time.Duration) Option {
	return func(c *Config) error {
		c.Advisor.DiagnoseDelay = diagnose
		c.Advisor.ChatDelay = chat
		return nil
	}
}

// WithTelemetry enables OpenTelemetry export to endpoint
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the logging level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format (json or console)
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithConfigFile overlays a JSON or YAML file
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode enables console logs, debug level and zero simulated latency
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.applyDevelopment(enabled)
		return nil
	}
}
