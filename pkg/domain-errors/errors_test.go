package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	wrapped := Wrap(base, CodeUnavailable, "store unavailable")
	outer := Wrap(wrapped, CodeInternal, "insert registration")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(base, CodeInternal))
	assert.ErrorIs(t, outer, base)
}

func TestIsOnlyChecksOutermost(t *testing.T) {
	err := Wrap(New(CodeConflict, "dup"), CodeInternal, "failed")
	assert.True(t, Is(err, CodeInternal))
	assert.False(t, Is(err, CodeConflict))

	viaFmt := fmt.Errorf("handler: %w", New(CodeNotFound, "session not found"))
	assert.True(t, Is(viaFmt, CodeNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal error", Message(New(CodeInternal, "pq: relation does not exist")))
	assert.Equal(t, "internal error", Message(errors.New("raw")))
	assert.Equal(t, "this email is already registered", Message(New(CodeConflict, "this email is already registered")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusUnprocessableEntity,
		CodeConflict:     http.StatusConflict,
		CodeInvalidState: http.StatusConflict,
		CodeNotFound:     http.StatusNotFound,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
