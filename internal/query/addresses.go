package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandleAddressOutputs serves GET /<ks>/addresses/ed25519/<addr>/outputs.
func (d *Deps) HandleAddressOutputs(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	addr, err := parseHexID(chi.URLParam(r, "addr"))
	if err != nil {
		writeErr(w, err)
		return
	}
	state, err := decodeState(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	pageSize := pageSizeParam(r, d.DefaultPageSize)
	recs, next, err := pageAddresses(r.Context(), ks, addr, pageSize, state)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, shapeAddresses(recs, boolParam(r, "expanded"), next))
}
