// Package server exposes the catalogs, carts, weather advisories and the
// advisor over an HTTP JSON API.
//
// Every response uses the apierror.Response envelope. Cart and advisor
// routes require a session established by the hosted auth flow; catalog,
// weather and health routes are public.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/config"
	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/telemetry"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

// Deps are the components the server routes to. Weather may be nil, in
// which case weather routes report the feature as unavailable.
type Deps struct {
	Catalogs *catalog.Registry
	Carts    *cart.Store
	Weather  *weather.Service
	Advisor  advisor.Advisor
	Verifier SessionVerifier
	Logger   logger.Logger
	Recorder telemetry.Recorder
	Version  string
}

// Server is the agrimarket HTTP API
type Server struct {
	deps    Deps
	cfg     config.Config
	log     logger.Logger
	handler http.Handler
	httpSrv *http.Server
	ready   chan struct{}
	addr    net.Addr
}

// New builds the server and its routes
func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Catalogs == nil {
		return nil, errors.New("server: catalogs are required")
	}
	if deps.Carts == nil {
		return nil, errors.New("server: cart store is required")
	}
	if deps.Advisor == nil {
		return nil, errors.New("server: advisor is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Verifier == nil {
		deps.Verifier = HeaderVerifier{Header: cfg.Auth.SessionHeader}
	}
	if deps.Recorder == nil {
		deps.Recorder = telemetry.Noop()
	}

	s := &Server{
		deps:  deps,
		cfg:   cfg,
		log:   deps.Logger.WithField("component", "http"),
		ready: make(chan struct{}),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	auth := RequireSession(s.deps.Verifier)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Catalogs
	mux.HandleFunc("GET /api/catalogs", s.handleListCatalogs)
	mux.HandleFunc("GET /api/catalogs/{catalog}/items", s.handleListItems)
	mux.HandleFunc("GET /api/catalogs/{catalog}/items/{itemId}", s.handleGetItem)
	mux.HandleFunc("GET /api/catalogs/{catalog}/facets", s.handleFacets)

	// Carts
	mux.Handle("POST /api/carts", auth(http.HandlerFunc(s.handleCreateCart)))
	mux.Handle("GET /api/carts/{cartId}", auth(http.HandlerFunc(s.handleGetCart)))
	mux.Handle("DELETE /api/carts/{cartId}", auth(http.HandlerFunc(s.handleDeleteCart)))
	mux.Handle("POST /api/carts/{cartId}/items", auth(http.HandlerFunc(s.handleAddItem)))
	mux.Handle("PATCH /api/carts/{cartId}/items/{itemId}", auth(http.HandlerFunc(s.handleUpdateItem)))
	mux.Handle("DELETE /api/carts/{cartId}/items/{itemId}", auth(http.HandlerFunc(s.handleRemoveItem)))
	mux.Handle("POST /api/carts/{cartId}/checkout", auth(http.HandlerFunc(s.handleCheckout)))

	// Weather
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/weather/alerts", s.handleWeatherAlerts)

	// Advisor
	mux.Handle("POST /api/advisor/diagnose", auth(http.HandlerFunc(s.handleDiagnose)))
	mux.Handle("POST /api/advisor/chat", auth(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("GET /api/advisor/greeting", s.handleGreeting)

	mux.HandleFunc("/", s.handleNotFound)

	h := chain(mux,
		RecoveryMiddleware(s.log),
		telemetry.CorrelationMiddleware,
		LoggingMiddleware(s.log, s.cfg.Development.Enabled),
		CORSMiddleware(s.cfg.HTTP.CORS),
		s.limitBody,
	)
	return otelhttp.NewHandler(h, s.cfg.Name,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.HTTP.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpSrv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}
	s.addr = ln.Addr()
	close(s.ready)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "address", ln.Addr().String(), "version", s.deps.Version)
		errCh <- s.httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.log.Info("HTTP server shutting down")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until the server is listening and returns its address
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func requestFields(r *http.Request) []interface{} {
	return telemetry.LogFields(r.Context())
}
