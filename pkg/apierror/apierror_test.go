package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForCategory(t *testing.T) {
	tests := []struct {
		category Category
		want     int
	}{
		{CategoryInputError, http.StatusBadRequest},
		{CategoryAuthError, http.StatusUnauthorized},
		{CategoryNotFound, http.StatusNotFound},
		{CategoryRateLimit, http.StatusTooManyRequests},
		{CategoryUpstreamError, http.StatusBadGateway},
		{CategoryServiceError, http.StatusServiceUnavailable},
		{Category("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusForCategory(tt.category))
		})
	}
}

func TestConstructors(t *testing.T) {
	in := Input("INVALID_QUANTITY", "quantity must be a number", "quantity")
	assert.False(t, in.Retryable)
	assert.Equal(t, "quantity", in.Details["field"])
	assert.Equal(t, http.StatusBadRequest, in.Status())

	assert.Nil(t, Input("X", "y", "").Details)

	up := Upstream("WEATHER_FETCH_FAILED", "provider returned 500")
	assert.True(t, up.Retryable)
	assert.Equal(t, http.StatusBadGateway, up.Status())

	assert.True(t, Unavailable("CIRCUIT_OPEN", "try later").Retryable)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("no session").Status())
	assert.Equal(t, http.StatusNotFound, NotFound("CART_NOT_FOUND", "gone").Status())

	internal := Internal()
	assert.False(t, internal.Retryable)
	assert.Equal(t, http.StatusInternalServerError, internal.Status())
}

func TestAs(t *testing.T) {
	base := NotFound("ITEM_NOT_FOUND", "no such item")
	wrapped := fmt.Errorf("lookup: %w", base)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.Equal(t, "[ITEM_NOT_FOUND] no such item", got.Error())

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
