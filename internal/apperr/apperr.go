// Package apperr provides the error taxonomy shared by the storage,
// paging, collector, syncer, and query-façade layers.
//
// It is named apperr rather than errors to avoid shadowing the standard
// library package in call sites that need both.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is a semantic error classification, not a concrete error type.
type Kind string

const (
	InvalidKeyspace Kind = "INVALID_KEYSPACE"
	BadParse        Kind = "BAD_PARSE"
	InvalidHex      Kind = "INVALID_HEX"
	IndexTooLarge   Kind = "INDEX_TOO_LARGE"
	InvalidState    Kind = "INVALID_STATE"
	NotFound        Kind = "NOT_FOUND"
	NoResults       Kind = "NO_RESULTS"
	Other           Kind = "OTHER"
)

// Error carries a Kind, a human message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// HTTPStatus maps a Kind onto the suggested HTTP status per the 400/404/500
// split: parse/state/size errors are client errors, NotFound/NoResults are
// 404 (callers that document otherwise shape the response themselves), and
// Other is 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case BadParse, InvalidHex, IndexTooLarge, InvalidState, InvalidKeyspace:
		return http.StatusBadRequest
	case NotFound, NoResults:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// body is the wire shape of an *Error response.
type body struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// WriteHTTP writes e as a JSON error response at its suggested status.
func (e *Error) WriteHTTP(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(body{Kind: e.Kind, Message: e.Message})
}

// As reports whether err is an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is an *Error, else Other.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Other
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
