package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{InvalidInputf("bad %s", "limit"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: %w", ErrCatalogUnavailable, errors.New("db down")), http.StatusServiceUnavailable},
		{ErrCacheUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("load: %w", ErrTimeout), http.StatusGatewayTimeout},
		{New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "limit must be positive", Message(InvalidInputf("limit must be positive")))
	assert.Equal(t, "catalog unavailable", Message(fmt.Errorf("%w: dial tcp 10.0.0.1:5432", ErrCatalogUnavailable)))
	assert.Equal(t, "internal error", Message(errors.New("secret detail")))
}

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrCacheUnavailable, http.StatusServiceUnavailable, "redis %s", "down")
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.Equal(t, "cache unavailable: redis down", err.Error())
}
