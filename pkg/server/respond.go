package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/apierror"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/resilience"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

// errWeatherDisabled is reported when no weather provider is configured
var errWeatherDisabled = errors.New("weather is not configured")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, apierror.Response{Success: true, Data: data})
}

func writeAPIError(w http.ResponseWriter, e *apierror.Error) {
	if e.Category == apierror.CategoryServiceError && e.Retryable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, e.Status(), apierror.Response{Success: false, Error: e})
}

// writeError maps domain errors onto the API envelope. Causes of internal
// errors are logged and never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := toAPIError(err)
	if e.Status() >= 500 {
		s.log.Error("Request failed",
			append([]interface{}{"path", r.URL.Path, "code", e.Code, "error", err.Error()}, requestFields(r)...)...)
	}
	writeAPIError(w, e)
}

func toAPIError(err error) *apierror.Error {
	if e, ok := apierror.As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, catalog.ErrCatalogNotFound):
		return apierror.NotFound("CATALOG_NOT_FOUND", "catalog not found")
	case errors.Is(err, catalog.ErrItemNotFound):
		return apierror.NotFound("ITEM_NOT_FOUND", "item not found")
	case errors.Is(err, cart.ErrCartNotFound):
		return apierror.NotFound("CART_NOT_FOUND", "cart not found")
	case errors.Is(err, cart.ErrInvalidItem):
		return apierror.Input("INVALID_ITEM", err.Error(), "itemId")

	case errors.Is(err, weather.ErrLocationRequired):
		return apierror.Input("LOCATION_REQUIRED", "location is required", "location")
	case errors.Is(err, weather.ErrLocationNotFound):
		return apierror.NotFound("LOCATION_NOT_FOUND", "location not found")
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apierror.Unavailable("WEATHER_UNAVAILABLE", "weather service is temporarily unavailable")
	case errors.Is(err, errWeatherDisabled):
		return apierror.Unavailable("WEATHER_DISABLED", "weather service is not configured")
	case errors.Is(err, weather.ErrFetchFailed):
		return apierror.Upstream("WEATHER_FETCH_FAILED", "failed to fetch weather data")

	case errors.Is(err, advisor.ErrNoImage):
		return apierror.Input("IMAGE_REQUIRED", "an image is required", "image")
	case errors.Is(err, advisor.ErrUnsupportedImage):
		return apierror.Input("UNSUPPORTED_IMAGE", err.Error(), "image")
	case errors.Is(err, advisor.ErrImageTooLarge):
		return apierror.Input("IMAGE_TOO_LARGE", err.Error(), "image")
	case errors.Is(err, advisor.ErrEmptyMessage):
		return apierror.Input("MESSAGE_REQUIRED", "message is required", "message")
	case errors.Is(err, advisor.ErrAdvisorFailed):
		return apierror.Upstream("ADVISOR_FAILED", "the assistant could not answer, try again")

	case errors.Is(err, context.DeadlineExceeded):
		return apierror.Unavailable("TIMEOUT", "request timed out")
	case errors.Is(err, context.Canceled):
		return &apierror.Error{Code: "CANCELLED", Message: "request cancelled", Category: apierror.CategoryInputError}
	}
	return apierror.Internal()
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierror.Input("INVALID_BODY", "request body must be valid JSON: "+err.Error(), "")
	}
	return nil
}
