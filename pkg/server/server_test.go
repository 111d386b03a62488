package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/apierror"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/config"
	"github.com/itsneelabh/agrimarket/pkg/memory"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apierror.Error `json:"error"`
}

type fixture struct {
	t      *testing.T
	srv    *Server
	static *weather.StaticProvider
}

func newFixture(t *testing.T, mutate ...func(*config.Config, *Deps)) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.HTTP.CORS = config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://*.agrimarket.app", "http://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
		MaxAge:         600,
	}

	static := &weather.StaticProvider{Snapshot: weather.Snapshot{
		Reading: weather.Reading{Temperature: 30, Precipitation: 80, Humidity: 20},
	}}
	deps := Deps{
		Catalogs: catalog.BuiltinRegistry(),
		Carts:    cart.NewStore(memory.NewInMemoryStore()),
		Weather:  weather.NewService(static, weather.WithDefaultLocation("Central Valley, CA")),
		Advisor:  advisor.NewCanned(advisor.WithDelays(0, 0)),
		Version:  "test",
	}
	for _, m := range mutate {
		m(cfg, &deps)
	}
	srv, err := New(*cfg, deps)
	require.NoError(t, err)
	return &fixture{t: t, srv: srv, static: static}
}

func (f *fixture) do(method, path, user string, body io.Reader, header ...string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (f *fixture) json(method, path, user, body string) (*httptest.ResponseRecorder, envelope) {
	return f.do(method, path, user, strings.NewReader(body), "Content-Type", "application/json")
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	body := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "healthy", body["status"])
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(http.MethodGet, "/api/catalogs", "", nil)
	infos := decode[[]catalogInfo](t, env.Data)
	require.Len(t, infos, 3)
	assert.Equal(t, "land", infos[0].Name)
	assert.False(t, infos[0].Purchasable)

	rec, env := f.do(http.MethodGet, "/api/catalogs/marketplace/items?category=Vegetables", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]catalog.Item](t, env.Data)
	names := []string{}
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Organic Tomatoes", "Sweet Corn", "Fresh Lettuce"}, names)

	rec, env = f.do(http.MethodGet, "/api/catalogs/land/items?search=zzz&location=all", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))

	rec, env = f.do(http.MethodGet, "/api/catalogs/shop/items/shop-2", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heirloom Tomato Seeds", decode[catalog.Item](t, env.Data).Name)

	_, env = f.do(http.MethodGet, "/api/catalogs/land/facets", "", nil)
	facets := decode[catalog.Facets](t, env.Data)
	assert.Equal(t, []string{"Cropland", "Organic", "Greenhouse", "Pasture"}, facets.Categories)

	rec, env = f.do(http.MethodGet, "/api/catalogs/orchard/items", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "CATALOG_NOT_FOUND", env.Error.Code)

	rec, env = f.do(http.MethodGet, "/api/catalogs/shop/items/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ITEM_NOT_FOUND", env.Error.Code)
}

func TestCartRequiresSession(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(http.MethodPost, "/api/carts", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CategoryAuthError, env.Error.Category)
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)
	const user = "grower-1"

	rec, env := f.do(http.MethodPost, "/api/carts", user, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[cart.Summary](t, env.Data)
	require.NotEmpty(t, created.ID)
	base := "/api/carts/" + created.ID

	for _, body := range []string{
		`{"catalog":"marketplace","itemId":"mkt-1"}`,
		`{"catalog":"marketplace","itemId":"mkt-1"}`,
		`{"catalog":"shop","itemId":"shop-1"}`,
	} {
		rec, _ = f.json(http.MethodPost, base+"/items", user, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	_, env = f.do(http.MethodGet, base, user, nil)
	sum := decode[cart.Summary](t, env.Data)
	require.Len(t, sum.Items, 2)
	assert.Equal(t, 2, sum.Items[0].Quantity)
	assert.InDelta(t, 39.97, sum.Subtotal, 1e-9)
	assert.Equal(t, "$3.20", sum.Display.Tax)
	assert.Equal(t, "$43.17", sum.Display.Total)
	assert.Equal(t, 3, sum.ItemCount)

	// free text quantity is coerced
	_, env = f.json(http.MethodPatch, base+"/items/shop-1", user, `{"quantity":"3 bags"}`)
	assert.Equal(t, 3, decode[cart.Summary](t, env.Data).Items[1].Quantity)

	_, env = f.json(http.MethodPatch, base+"/items/shop-1", user, `{"quantity":"abc"}`)
	assert.Len(t, decode[cart.Summary](t, env.Data).Items, 1, "unparseable text removes the line")

	_, env = f.json(http.MethodPatch, base+"/items/mkt-1", user, `{"quantity":5}`)
	assert.Equal(t, 5, decode[cart.Summary](t, env.Data).Items[0].Quantity)

	rec, env = f.json(http.MethodPatch, base+"/items/mkt-1", user, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "QUANTITY_REQUIRED", env.Error.Code)

	// removing an absent line is a no-op
	rec, _ = f.do(http.MethodDelete, base+"/items/shop-9", user, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// someone else's cart looks like it does not exist
	rec, env = f.do(http.MethodGet, base, "intruder", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CART_NOT_FOUND", env.Error.Code)

	rec, env = f.do(http.MethodPost, base+"/checkout", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		Receipt cart.Receipt `json:"receipt"`
		Display cart.Display `json:"display"`
	}](t, env.Data)
	assert.Equal(t, 5, out.Receipt.ItemCount)
	assert.Equal(t, "$26.95", out.Display.Total)

	_, env = f.do(http.MethodGet, base, user, nil)
	assert.Empty(t, decode[cart.Summary](t, env.Data).Items)

	rec, _ = f.do(http.MethodDelete, base, user, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = f.do(http.MethodGet, base, user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	const user = "grower-2"
	_, env := f.do(http.MethodPost, "/api/carts", user, nil)
	base := "/api/carts/" + decode[cart.Summary](t, env.Data).ID

	tests := []struct {
		body   string
		status int
		code   string
	}{
		{`{"catalog":"land","itemId":"land-1"}`, http.StatusBadRequest, "NOT_PURCHASABLE"},
		{`{"catalog":"marketplace","itemId":"mkt-3"}`, http.StatusBadRequest, "OUT_OF_STOCK"},
		{`{"catalog":"marketplace","itemId":"mkt-99"}`, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{`{"itemId":"mkt-1"}`, http.StatusBadRequest, "CATALOG_REQUIRED"},
		{`{"catalog":"shop"}`, http.StatusBadRequest, "ITEM_REQUIRED"},
		{`{"catalog":"shop","itemId":"shop-1","price":0.01}`, http.StatusBadRequest, "INVALID_BODY"},
		{`not json`, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec, env := f.json(http.MethodPost, base+"/items", user, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.False(t, env.Error.Retryable)
		})
	}

	rec, env := f.json(http.MethodPost, "/api/carts/missing/items", user, `{"catalog":"shop","itemId":"shop-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CART_NOT_FOUND", env.Error.Code)
}

func TestWeather(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(http.MethodGet, "/api/weather?location=Fresno", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[weather.Report](t, env.Data)
	assert.Equal(t, "Fresno", report.Location)
	require.Len(t, report.Alerts, 2)
	assert.Equal(t, "Frost Warning", report.Alerts[0].Title)
	assert.Equal(t, "Heavy Rain Expected", report.Alerts[1].Title)
	assert.NotContains(t, rec.Body.String(), "appid")

	_, env = f.do(http.MethodGet, "/api/weather", "", nil)
	assert.Equal(t, "Central Valley, CA", decode[weather.Report](t, env.Data).Location)

	_, env = f.do(http.MethodGet, "/api/weather/alerts?location=Fresno", "", nil)
	assert.Len(t, decode[[]weather.Alert](t, env.Data), 2)
}

func TestWeatherErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"upstream failure", &weather.FetchError{Op: "current", StatusCode: 500, Err: fmt.Errorf("API returned status 500")}, http.StatusBadGateway, "WEATHER_FETCH_FAILED", true},
		{"unknown city", &weather.FetchError{Op: "current", StatusCode: 404, Err: weather.ErrLocationNotFound}, http.StatusNotFound, "LOCATION_NOT_FOUND", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.static.Err = tt.err

			rec, env := f.do(http.MethodGet, "/api/weather?location=x", "", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.retryable, env.Error.Retryable)
		})
	}

	f := newFixture(t, func(_ *config.Config, d *Deps) { d.Weather = nil })
	rec, env := f.do(http.MethodGet, "/api/weather?location=x", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, env.Error.Retryable)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestAdvisorRoutes(t *testing.T) {
	f := newFixture(t)
	const user = "grower-3"
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

	rec, env := f.do(http.MethodPost, "/api/advisor/diagnose", user, bytes.NewReader(png), "Content-Type", "image/png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Early Blight", decode[advisor.Diagnosis](t, env.Data).Disease)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "leaf.png")
	require.NoError(t, err)
	_, _ = part.Write(png)
	require.NoError(t, mw.Close())
	rec, env = f.do(http.MethodPost, "/api/advisor/diagnose", user, &buf, "Content-Type", mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 87, decode[advisor.Diagnosis](t, env.Data).Confidence)

	rec, env = f.do(http.MethodPost, "/api/advisor/diagnose", user, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMAGE_REQUIRED", env.Error.Code)

	rec, env = f.json(http.MethodPost, "/api/advisor/chat", user, `{"message":"Any recipe ideas?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, advisor.Topics[3].Reply, decode[advisor.Reply](t, env.Data).Message)

	rec, env = f.json(http.MethodPost, "/api/advisor/chat", user, `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MESSAGE_REQUIRED", env.Error.Code)

	rec, _ = f.json(http.MethodPost, "/api/advisor/chat", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, env = f.do(http.MethodGet, "/api/advisor/greeting", "", nil)
	assert.Equal(t, advisor.Greeting, decode[advisor.Reply](t, env.Data).Message)
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t, func(c *config.Config, _ *Deps) { c.HTTP.MaxBodyBytes = 16 })
	rec, env := f.do(http.MethodPost, "/api/advisor/diagnose", "u", bytes.NewReader(make([]byte, 64)), "Content-Type", "image/png")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMAGE_TOO_LARGE", env.Error.Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/carts", nil)
	req.Header.Set("Origin", "https://shop.agrimarket.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.agrimarket.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://*.agrimarket.app", "http://localhost:*", "https://exact.example"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"https://exact.example", true},
		{"https://a.agrimarket.app", true},
		{"https://agrimarket.app", false},
		{"http://a.agrimarket.app", false},
		{"http://localhost:5173", true},
		{"http://localhost", false},
		{"https://other.example", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isOriginAllowed(tt.origin, allowed), tt.origin)
	}
	assert.True(t, isOriginAllowed("https://x.y", []string{"*"}))
}

func TestRecovery(t *testing.T) {
	h := RecoveryMiddleware(nopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(http.MethodGet, "/api/tractors", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", env.Error.Code)
}

func TestHeaderVerifier(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := HeaderVerifier{}.Verify(r)
	assert.ErrorIs(t, err, ErrNoSession)

	r.Header.Set("X-Session-User", " u-7 ")
	s, err := HeaderVerifier{Header: "X-Session-User"}.Verify(r)
	require.NoError(t, err)
	assert.Equal(t, "u-7", s.UserID)
}

func TestQuantityValue(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`3`, 3},
		{`2.9`, 2},
		{`-1`, -1},
		{`1e12`, 2147483647},
		{`"7 crates"`, 7},
		{`"1e3"`, 1},
		{`"  "`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var q quantityValue
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &q), tt.raw)
		assert.True(t, q.set)
		assert.Equal(t, tt.want, q.Int(), tt.raw)
	}
	var q quantityValue
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &q))
}

func TestServe_GracefulShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + f.srv.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(*config.DefaultConfig(), Deps{})
	assert.Error(t, err)
}
