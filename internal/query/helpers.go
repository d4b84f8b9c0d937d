package query

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"permanode/internal/apperr"
	"permanode/internal/codec"
	"permanode/pkg/types"
)

// keyspaceFromPath resolves the {ks} chi URL param against the configured
// set, returning InvalidKeyspace if it isn't one of them.
func (d *Deps) keyspaceFromPath(r *http.Request) (*KeyspaceStore, string, error) {
	ks := chi.URLParam(r, "ks")
	store, ok := d.lookupKeyspace(ks)
	if !ok {
		return nil, "", apperr.New(apperr.InvalidKeyspace, "unknown keyspace: "+ks)
	}
	return store, ks, nil
}

// parseHexID validates s decodes as hex and returns it unchanged: ids are
// stored as opaque hex strings, so no byte conversion is needed beyond the
// validation itself.
func parseHexID(s string) (string, error) {
	if _, err := hex.DecodeString(s); err != nil {
		return "", apperr.Wrap(apperr.BadParse, "invalid hex id: "+s, err)
	}
	return s, nil
}

// pageSizeParam reads page_size from the query string, falling back to
// def and rejecting nothing (an invalid value is simply ignored in favor
// of the default, matching the original's Option<usize> semantics).
func pageSizeParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("page_size")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// decodeState decodes the optional hex-wrapped paging cookie. Any failure
// collapses unconditionally to InvalidState per spec.md §7.
func decodeState(r *http.Request) (*types.StateData, error) {
	raw := r.URL.Query().Get("state")
	if raw == "" {
		return nil, nil
	}
	state, err := codec.DecodeCookieHex(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidState, "invalid paging cookie", err)
	}
	return state, nil
}

func encodeState(s *types.StateData) *string {
	if s == nil {
		return nil
	}
	v := codec.EncodeCookieHex(s)
	return &v
}

// writeJSON writes v as the response body at status 200.
func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFoundErr(path string) error {
	return apperr.New(apperr.NotFound, "no route for path: "+path)
}

// writeErr shapes err as the façade's standard error body, using
// apperr.Error.WriteHTTP when err carries a Kind and falling back to a
// generic 500 otherwise.
func writeErr(w http.ResponseWriter, err error) {
	if appErr, ok := apperr.As(err); ok {
		appErr.WriteHTTP(w)
		return
	}
	apperr.Wrap(apperr.Other, "unexpected error", err).WriteHTTP(w)
}
