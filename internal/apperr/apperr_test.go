package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("create order: %w", Missing("lotNumber", "quantity"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "missing required fields: lotNumber, quantity", MessageOf(err))
}

func TestStatusRoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		code int
	}{
		{KindAuth, http.StatusUnauthorized},
		{KindValidation, http.StatusBadRequest},
		{KindAuthorization, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			code := StatusCode(New(tt.kind, "boom"))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.kind, FromStatus(code, "").Kind)
		})
	}
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("disk on fire")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, KindTransport, FromStatus(http.StatusBadGateway, "").Kind)
}
