package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		BadParse:        http.StatusBadRequest,
		InvalidHex:      http.StatusBadRequest,
		IndexTooLarge:   http.StatusBadRequest,
		InvalidState:    http.StatusBadRequest,
		InvalidKeyspace: http.StatusBadRequest,
		NotFound:        http.StatusNotFound,
		NoResults:       http.StatusNotFound,
		Other:           http.StatusInternalServerError,
	}

	for kind, want := range cases {
		got := New(kind, "boom").HTTPStatus()
		assert.Equal(t, want, got, "kind %s", kind)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(InvalidState, "bad cookie", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, InvalidState, KindOf(err))
	assert.True(t, Is(err, InvalidState))
	assert.False(t, Is(err, NotFound))
}

func TestAsNonAppError(t *testing.T) {
	plain := errors.New("plain")
	_, ok := As(plain)
	assert.False(t, ok)
	assert.Equal(t, Other, KindOf(plain))
}
