package agrimarket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/apierror"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/config"
	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/memory"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Advisor.DiagnoseDelay = 0
	cfg.Advisor.ChatDelay = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	app, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func get(t *testing.T, app *App, path string) (*httptest.ResponseRecorder, apierror.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env apierror.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestNewDefaults(t *testing.T) {
	app := newTestApp(t, testConfig())

	assert.Equal(t, []string{"land", "marketplace", "shop"}, app.Catalogs.Names())
	assert.Nil(t, app.Weather, "weather stays off without an API key")
	assert.IsType(t, &advisor.Canned{}, app.Advisor)
	assert.IsType(t, &memory.InMemoryStore{}, app.Memory)

	rec, env := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = get(t, app, "/api/weather?location=Fresno")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "WEATHER_DISABLED", env.Error.Code)
}

func TestNewNilConfig(t *testing.T) {
	app, err := New(context.Background(), nil, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	defer app.Close(context.Background())
	assert.Equal(t, "agrimarket", app.Config.Name)
}

func TestNewWithWeatherProvider(t *testing.T) {
	static := weather.StaticProvider{Snapshot: weather.Snapshot{
		Reading: weather.Reading{Temperature: 30, Precipitation: 80, Humidity: 20},
	}}
	app := newTestApp(t, testConfig(), WithWeatherProvider(static))

	rec, env := get(t, app, "/api/weather/alerts?location=Fresno")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Contains(t, rec.Body.String(), "Frost Warning")
	assert.Contains(t, rec.Body.String(), "Heavy Rain Expected")
}

func TestNewWeatherEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Weather.Enabled = true
	cfg.Weather.APIKey = "server-side-key"
	cfg.Weather.BaseURL = "http://127.0.0.1:1"

	app := newTestApp(t, cfg)
	require.NotNil(t, app.Weather)
}

func TestNewCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalogs:
  - name: seedbank
    title: Seed Bank
    search_fields: [name]
    category_match: exact
    items:
      - id: sb-1
        name: Dryland Wheat
        category: Grains
        price_label: free
        available: true
`), 0o600))

	cfg := testConfig()
	cfg.Catalog.Source = config.CatalogFile
	cfg.Catalog.SeedFile = path
	app := newTestApp(t, cfg)

	assert.Contains(t, app.Catalogs.Names(), "seedbank")
	assert.Contains(t, app.Catalogs.Names(), "marketplace")
}

func TestNewAppendDuplicates(t *testing.T) {
	cfg := testConfig()
	cfg.Cart.MergeDuplicates = false
	app := newTestApp(t, cfg)

	ctx := context.Background()
	c, err := app.Carts.Create(ctx, "farmer-1")
	require.NoError(t, err)
	item := cart.LineItem{ID: "mkt-1", Name: "Fresh Tomatoes", UnitPrice: 3.5, Quantity: 1}
	_, err = app.Carts.AddItem(ctx, "farmer-1", c.ID, item)
	require.NoError(t, err)
	c, err = app.Carts.AddItem(ctx, "farmer-1", c.ID, item)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Lines.Len())
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "unknown catalog source",
			mutate: func(c *config.Config) { c.Catalog.Source = "ftp" },
			want:   `unknown catalog source "ftp"`,
		},
		{
			name: "missing catalog file",
			mutate: func(c *config.Config) {
				c.Catalog.Source = config.CatalogFile
				c.Catalog.SeedFile = "/nonexistent/catalogs.yaml"
			},
			want: "failed to read catalog file",
		},
		{
			name:   "unknown advisor",
			mutate: func(c *config.Config) { c.Advisor.Provider = "oracle" },
			want:   `unknown advisor provider "oracle"`,
		},
		{
			name:   "unknown memory provider",
			mutate: func(c *config.Config) { c.Memory.Provider = "memcached" },
			want:   "failed to initialise cart storage",
		},
		{
			name: "invalid breaker",
			mutate: func(c *config.Config) {
				c.Weather.Enabled = true
				c.Weather.APIKey = "k"
				c.Weather.CircuitBreaker.Threshold = 0
			},
			want: "failed to create weather circuit breaker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, WithLogger(logger.NewNop()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServeAndClose(t *testing.T) {
	app := newTestApp(t, testConfig())

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/catalogs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
	assert.NoError(t, app.Close(context.Background()))
}
