// Package agrimarket wires the marketplace, cart, weather and advisor
// services behind one HTTP API.
//
// Basic usage:
//
//	cfg, err := config.NewConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, err := agrimarket.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Close(context.Background())
//	log.Fatal(app.Run(ctx))
package agrimarket

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/ai"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/catalog/pgsource"
	"github.com/itsneelabh/agrimarket/pkg/config"
	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/memory"
	"github.com/itsneelabh/agrimarket/pkg/resilience"
	"github.com/itsneelabh/agrimarket/pkg/server"
	"github.com/itsneelabh/agrimarket/pkg/telemetry"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

// App owns every long-lived component of the service
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Telemetry *telemetry.Provider
	Memory    memory.Memory
	Catalogs  *catalog.Registry
	Carts     *cart.Store
	Weather   *weather.Service
	Advisor   advisor.Advisor
	Server    *server.Server

	catalogDB *pgsource.Source
	zap       *logger.ZapLogger
}

// Option customises App construction
type Option func(*App)

// WithLogger replaces the zap logger built from the logging config
func WithLogger(l logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithMemory supplies the cart storage instead of building one from config
func WithMemory(m memory.Memory) Option {
	return func(a *App) { a.Memory = m }
}

// WithWeatherProvider supplies the weather upstream instead of OpenWeatherMap
func WithWeatherProvider(p weather.Provider) Option {
	return func(a *App) {
		a.Weather = weather.NewService(p, weather.WithDefaultLocation(a.Config.Weather.DefaultLocation))
	}
}

// WithAdvisor supplies the advisor instead of building one from config
func WithAdvisor(adv advisor.Advisor) Option {
	return func(a *App) { a.Advisor = adv }
}

// New builds every component named by cfg. On error, anything already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (app *App, err error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	if a.Logger == nil {
		zl, lerr := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if lerr != nil {
			return nil, lerr
		}
		a.zap = zl
		a.Logger = zl
	}
	log := a.Logger.WithField("service", cfg.Name)

	a.Telemetry, err = telemetry.New(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRate:  cfg.Telemetry.SampleRate,
		Development: cfg.Development.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise telemetry: %w", err)
	}

	if a.Memory == nil {
		a.Memory, err = memory.New(ctx, memory.Options{
			Provider:   cfg.Memory.Provider,
			RedisURL:   cfg.Memory.RedisURL,
			BadgerPath: cfg.Memory.BadgerPath,
			Namespace:  cfg.Memory.Namespace,
			DefaultTTL: cfg.Memory.DefaultTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialise cart storage: %w", err)
		}
	}

	policy := cart.MergeDuplicates
	if !cfg.Cart.MergeDuplicates {
		policy = cart.AppendDuplicates
	}
	a.Carts = cart.NewStore(a.Memory,
		cart.WithTTL(cfg.Cart.TTL),
		cart.WithAddPolicy(policy),
		cart.WithLogger(log.WithField("component", "cart")),
	)

	if a.Catalogs, err = a.loadCatalogs(ctx, log); err != nil {
		return nil, err
	}

	if a.Weather == nil && cfg.Weather.Enabled {
		if a.Weather, err = NewWeatherService(cfg.Weather, log, a.Telemetry); err != nil {
			return nil, err
		}
	}

	if a.Advisor == nil {
		if a.Advisor, err = newAdvisor(ctx, cfg.Advisor, log); err != nil {
			return nil, err
		}
	}

	a.Server, err = server.New(*cfg, server.Deps{
		Catalogs: a.Catalogs,
		Carts:    a.Carts,
		Weather:  a.Weather,
		Advisor:  a.Advisor,
		Verifier: server.HeaderVerifier{Header: cfg.Auth.SessionHeader},
		Logger:   log,
		Recorder: a.Telemetry,
		Version:  Version,
	})
	if err != nil {
		return nil, err
	}

	log.Info("agrimarket initialised",
		"catalogs", a.Catalogs.Names(),
		"memory_provider", cfg.Memory.Provider,
		"weather_enabled", a.Weather != nil,
		"advisor_provider", cfg.Advisor.Provider)
	return a, nil
}

func (a *App) loadCatalogs(ctx context.Context, log logger.Logger) (*catalog.Registry, error) {
	cfg := a.Config.Catalog
	switch cfg.Source {
	case "", config.CatalogBuiltin:
		return catalog.NewRegistry(catalog.Builtin()...)
	case config.CatalogFile:
		reg, err := catalog.LoadFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Info("Loaded catalogs from file", "path", cfg.SeedFile)
		return reg, nil
	case config.CatalogPostgres:
		src, err := pgsource.Open(cfg.DatabaseURL, log.WithField("component", "catalog"))
		if err != nil {
			return nil, err
		}
		a.catalogDB = src
		return src.Load(ctx, catalog.Builtin())
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// NewWeatherService builds the OpenWeatherMap-backed weather service with its
// circuit breaker. The API key never leaves the returned client.
func NewWeatherService(cfg config.WeatherConfig, log logger.Logger, rec telemetry.Recorder) (*weather.Service, error) {
	wlog := log.WithField("component", "weather")
	clientOpts := []weather.ClientOption{
		weather.WithBaseURL(cfg.BaseURL),
		weather.WithTimeout(cfg.Timeout),
		weather.WithClientLogger(wlog),
		weather.WithRecorder(rec),
	}
	if cfg.CircuitBreaker.Enabled {
		bc := resilience.DefaultConfig("openweathermap")
		bc.FailureThreshold = cfg.CircuitBreaker.Threshold
		bc.SleepWindow = cfg.CircuitBreaker.Timeout
		bc.HalfOpenRequests = cfg.CircuitBreaker.HalfOpenRequests
		bc.ErrorClassifier = weather.IsBreakerFailure
		bc.Logger = wlog
		cb, err := resilience.NewCircuitBreaker(bc)
		if err != nil {
			return nil, fmt.Errorf("failed to create weather circuit breaker: %w", err)
		}
		clientOpts = append(clientOpts, weather.WithBreaker(cb))
	}
	return weather.NewService(
		weather.NewOpenWeatherMap(cfg.APIKey, clientOpts...),
		weather.WithDefaultLocation(cfg.DefaultLocation),
		weather.WithServiceLogger(wlog),
	), nil
}

func newAdvisor(ctx context.Context, cfg config.AdvisorConfig, log logger.Logger) (advisor.Advisor, error) {
	alog := log.WithField("component", "advisor")
	switch cfg.Provider {
	case "", config.AdvisorCanned:
		return advisor.NewCanned(advisor.WithDelays(cfg.DiagnoseDelay, cfg.ChatDelay)), nil
	case config.AdvisorGemini:
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
			Logger: alog,
		})
		if err != nil {
			return nil, err
		}
		return advisor.NewModel(client,
			advisor.WithModelName(cfg.Model),
			advisor.WithModelTimeout(cfg.Timeout),
			advisor.WithModelLogger(alog),
		), nil
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", cfg.Provider)
	}
}

// Run serves the API until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx)
}

// Serve serves the API on ln until ctx is cancelled
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	return a.Server.Serve(ctx, ln)
}

// Close releases storage, database and telemetry resources
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Memory != nil {
		errs = append(errs, a.Memory.Close())
	}
	if a.catalogDB != nil {
		errs = append(errs, a.catalogDB.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	if a.zap != nil {
		_ = a.zap.Sync() // stderr sync fails on some terminals
	}
	return errors.Join(errs...)
}
