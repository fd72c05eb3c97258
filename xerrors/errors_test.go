package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKeepsSentinelIdentity(t *testing.T) {
	err := ErrDimMismatch.Derive("row %d has %d features, want %d", 3, 2, 4)

	assert.True(t, errors.Is(err, ErrDimMismatch))
	assert.False(t, errors.Is(err, ErrEmptyData))
	assert.Equal(t, "row 3 has 2 features, want 4", err.Detail)
	assert.Equal(t, "matrix or vector dimensions do not match", ErrDimMismatch.Detail)
	assert.NotEmpty(t, err.Stack)
}

func TestWrapKeepsCode(t *testing.T) {
	wrapped := fmt.Errorf("train: %w", ErrEmptyData.Derive("no rows"))
	err := Wrap(wrapped, ErrInternal, "load dataset")

	assert.Equal(t, ErrEmptyData.Code, err.Code)
	assert.True(t, errors.Is(err, ErrEmptyData))
	assert.Nil(t, Wrap(nil, ErrInternal, "noop"))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{ErrDimMismatch, http.StatusBadRequest},
		{ErrModelNotFound, http.StatusNotFound},
		{ErrNotTrained, http.StatusConflict},
		{ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{Internal("boom", nil), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.HTTPStatus(), c.err.Message)
	}
}

func TestErrorString(t *testing.T) {
	err := ErrInvalidKernel.Derive("unknown kernel %q", "sigmoid")
	assert.Contains(t, err.Error(), "InvalidArg")
	assert.Contains(t, err.Error(), `unknown kernel "sigmoid"`)
}
