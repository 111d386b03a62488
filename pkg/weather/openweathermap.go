package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/resilience"
	"github.com/itsneelabh/agrimarket/pkg/telemetry"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

const (
	metersPerMile   = 1609.344
	slotsPerDay     = 8 // forecast slots are three hours apart
	forecastDays    = 5
	userAgentHeader = "agrimarket-weather/1.0"
)

// owmCurrent is the subset of /weather the service reads
type owmCurrent struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
	Rain       struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Weather []owmCondition `json:"weather"`
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// owmForecast is the subset of /forecast the service reads
type owmForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
		Pop     float64        `json:"pop"`
	} `json:"list"`
	City struct {
		Timezone int `json:"timezone"` // seconds east of UTC
	} `json:"city"`
}

// OpenWeatherMap is a Provider backed by the OpenWeatherMap HTTP API. The API
// key is kept server side and is never included in returned errors.
type OpenWeatherMap struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	log        logger.Logger
	recorder   telemetry.Recorder
}

// ClientOption configures an OpenWeatherMap client
type ClientOption func(*OpenWeatherMap)

// WithBaseURL overrides the API root
func WithBaseURL(baseURL string) ClientOption {
	return func(c *OpenWeatherMap) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *OpenWeatherMap) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(c *OpenWeatherMap) { c.httpClient.Timeout = d }
}

// WithBreaker makes the client fail fast while the breaker is open
func WithBreaker(cb *resilience.CircuitBreaker) ClientOption {
	return func(c *OpenWeatherMap) { c.breaker = cb }
}

// WithClientLogger sets the client logger
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *OpenWeatherMap) { c.log = l }
}

// WithRecorder sets the telemetry recorder
func WithRecorder(r telemetry.Recorder) ClientOption {
	return func(c *OpenWeatherMap) { c.recorder = r }
}

// NewOpenWeatherMap creates a client using apiKey
func NewOpenWeatherMap(apiKey string, opts ...ClientOption) *OpenWeatherMap {
	c := &OpenWeatherMap{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:      logger.NewNop(),
		recorder: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsBreakerFailure reports whether err should count against the circuit
// breaker. Unknown locations and cancelled requests say nothing about the
// upstream's health.
func IsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrLocationNotFound) &&
		!errors.Is(err, ErrLocationRequired) &&
		!errors.Is(err, context.Canceled)
}

// Fetch gets current conditions and the forecast concurrently. If either
// call fails the whole fetch fails.
func (c *OpenWeatherMap) Fetch(ctx context.Context, location string) (Snapshot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Snapshot{}, ErrLocationRequired
	}

	start := time.Now()
	ctx, span := c.recorder.StartSpan(ctx, "weather.fetch")

	var snap Snapshot
	run := func(ctx context.Context) error {
		var err error
		snap, err = c.fetch(ctx, location)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, run)
	} else {
		err = run(ctx)
	}

	c.recorder.RecordOperation(ctx, "weather.fetch", time.Since(start), err)
	telemetry.EndSpan(span, err)
	if err != nil {
		c.log.Warn("weather fetch failed", "location", location, "error", err.Error())
		return Snapshot{}, err
	}
	return snap, nil
}

// Current returns only the current reading
func (c *OpenWeatherMap) Current(ctx context.Context, location string) (Reading, error) {
	snap, err := c.Fetch(ctx, location)
	return snap.Reading, err
}

func (c *OpenWeatherMap) fetch(ctx context.Context, location string) (Snapshot, error) {
	var (
		cur owmCurrent
		fc  owmForecast
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, "current", "/weather", location, &cur) })
	g.Go(func() error { return c.get(gctx, "forecast", "/forecast", location, &fc) })
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	reading := toReading(location, cur)
	if len(fc.List) > 0 {
		reading.Precipitation = percent(fc.List[0].Pop)
	}
	return Snapshot{Reading: reading, Forecast: toDaily(fc)}, nil
}

func (c *OpenWeatherMap) get(ctx context.Context, op, path, location string, out interface{}) error {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return &FetchError{Op: op, Location: location, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgentHeader)
	req.Header.Set("Accept", "application/json")
	telemetry.InjectCorrelationHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return &FetchError{Op: op, Location: location, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Op: op, Location: location, StatusCode: resp.StatusCode, Err: ErrLocationNotFound}
	case resp.StatusCode == http.StatusUnauthorized:
		return &FetchError{Op: op, Location: location, StatusCode: resp.StatusCode, Err: ErrUnauthorized}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &FetchError{Op: op, Location: location, StatusCode: resp.StatusCode, Err: fmt.Errorf("API returned status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Location: location, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func toReading(location string, cur owmCurrent) Reading {
	r := Reading{
		Location:     location,
		Temperature:  round(cur.Main.Temp),
		Humidity:     round(cur.Main.Humidity),
		WindSpeed:    round(cur.Wind.Speed),
		Visibility:   DefaultVisibility,
		UVIndex:      DefaultUVIndex,
		RainLastHour: cur.Rain.OneHour,
	}
	if cur.Name != "" {
		r.Location = cur.Name
	}
	if cur.Visibility != nil {
		r.Visibility = math.Round(*cur.Visibility/metersPerMile*10) / 10
	}
	if len(cur.Weather) > 0 {
		r.Condition = cur.Weather[0].Description
		r.Icon = cur.Weather[0].Icon
	}
	return r
}

// toDaily folds three-hourly slots into days of eight slots each. A day's
// high and low span its slots; condition and icon come from its first slot.
func toDaily(fc owmForecast) []DayForecast {
	days := make([]DayForecast, 0, forecastDays)
	tz := time.FixedZone("local", fc.City.Timezone)

	for start := 0; start < len(fc.List) && len(days) < forecastDays; start += slotsPerDay {
		end := start + slotsPerDay
		if end > len(fc.List) {
			end = len(fc.List)
		}
		first := fc.List[start]
		t := time.Unix(first.Dt, 0).In(tz)

		d := DayForecast{
			Date: t.Format("2006-01-02"),
			Day:  t.Format("Mon"),
			High: round(first.Main.TempMax),
			Low:  round(first.Main.TempMin),
		}
		if len(first.Weather) > 0 {
			d.Condition = first.Weather[0].Description
			d.Icon = first.Weather[0].Icon
		}
		for _, slot := range fc.List[start:end] {
			d.High = max(d.High, round(slot.Main.TempMax))
			d.Low = min(d.Low, round(slot.Main.TempMin))
			d.Precipitation = max(d.Precipitation, percent(slot.Pop))
		}
		days = append(days, d)
	}
	return days
}

// round rounds halves up, so -2.5 becomes -2
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func percent(pop float64) int {
	return round(pop * 100)
}
