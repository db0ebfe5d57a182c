package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestHTTPErrorConstructors(t *testing.T) {
	tests := map[string]struct {
		err        *HTTPError
		wantStatus int
		wantCode   string
	}{
		"not found":   {NewNotFoundError("no repo"), http.StatusNotFound, "NOT_FOUND"},
		"bad request": {NewBadRequestError("bad"), http.StatusBadRequest, "BAD_REQUEST"},
		"unavailable": {NewServiceUnavailableError("down"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		"internal":    {NewInternalServerError(), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}

func TestHTTPErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFoundError("missing"))
	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, "missing", httpErr.Message)
}

func TestFormatCLIError(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	err := NewConfigError("missing GITHUB_TOKEN", "Add it to keys.env")
	out := Format(err)

	assert.Contains(t, out, "Error [Configuration Error]: missing GITHUB_TOKEN")
	assert.Contains(t, out, "To fix this:")
	assert.Contains(t, out, "• Add it to keys.env")
	assert.Empty(t, Format(nil))
}

func TestRuntimeErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewRuntimeError("fetching commits", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetching commits: boom", err.Error())
}
