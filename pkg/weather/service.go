package weather

import (
	"context"
	"strings"
	"time"

	"github.com/itsneelabh/agrimarket/pkg/logger"
)

// Report is the advisory view for one location
type Report struct {
	Location  string        `json:"location"`
	Reading   Reading       `json:"current"`
	Forecast  []DayForecast `json:"forecast"`
	Alerts    []Alert       `json:"alerts"`
	Tips      []Tip         `json:"tips"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Service combines a Provider with the alert rules
type Service struct {
	provider        Provider
	rules           []Rule
	tipRules        []TipRule
	defaultLocation string
	log             logger.Logger
	now             func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRules replaces the default alert rules
func WithRules(rules []Rule) ServiceOption {
	return func(s *Service) { s.rules = rules }
}

// WithTipRules replaces the default farming tip rules
func WithTipRules(rules []TipRule) ServiceOption {
	return func(s *Service) { s.tipRules = rules }
}

// WithDefaultLocation is used when a request names no location
func WithDefaultLocation(location string) ServiceOption {
	return func(s *Service) { s.defaultLocation = location }
}

// WithServiceLogger sets the service logger
func WithServiceLogger(l logger.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over provider
func NewService(provider Provider, opts ...ServiceOption) *Service {
	s := &Service{
		provider: provider,
		rules:    DefaultRules,
		tipRules: DefaultTipRules,
		log:      logger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Advisory fetches conditions for location and evaluates the alert and tip
// rules. On failure nothing is cached or partially returned.
func (s *Service) Advisory(ctx context.Context, location string) (Report, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = s.defaultLocation
	}
	if location == "" {
		return Report{}, ErrLocationRequired
	}

	snap, err := s.provider.Fetch(ctx, location)
	if err != nil {
		return Report{}, err
	}

	alerts := EvaluateRules(s.rules, snap.Reading)
	tips := EvaluateTips(s.tipRules, snap)
	s.log.Debug("weather advisory evaluated",
		"location", location,
		"temperature", snap.Reading.Temperature,
		"alerts", len(alerts),
		"tips", len(tips))

	forecast := snap.Forecast
	if forecast == nil {
		forecast = []DayForecast{}
	}
	return Report{
		Location:  location,
		Reading:   snap.Reading,
		Forecast:  forecast,
		Alerts:    alerts,
		Tips:      tips,
		FetchedAt: s.now().UTC(),
	}, nil
}

// StaticProvider serves a fixed snapshot. It backs the CLI's offline mode
// and tests.
type StaticProvider struct {
	Snapshot Snapshot
	Err      error
}

// Fetch returns the configured snapshot with its location set
func (p StaticProvider) Fetch(ctx context.Context, location string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if p.Err != nil {
		return Snapshot{}, p.Err
	}
	snap := p.Snapshot
	snap.Reading.Location = location
	return snap, nil
}
