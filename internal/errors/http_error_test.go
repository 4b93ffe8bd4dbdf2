package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFound("slot %s", "s1"), http.StatusNotFound},
		{Conflict("slot full"), http.StatusConflict},
		{InvalidState("cannot check in"), http.StatusUnprocessableEntity},
		{Validation("end before start"), http.StatusBadRequest},
		{Unauthorized("invalid credentials"), http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusCode(c.err))
	}
}

func TestWrappingPreservesKind(t *testing.T) {
	err := fmt.Errorf("creating booking: %w", Conflict("slot %s full", "s1"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Equal(t, "creating booking: slot s1 full: conflict", err.Error())
}
