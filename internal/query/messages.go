package query

import (
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"

	"permanode/internal/apperr"
)

const maxIndexTagBytes = 64

// HandleMessage serves GET /<ks>/messages/<mid>.
func (d *Deps) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	mid, err := parseHexID(chi.URLParam(r, "mid"))
	if err != nil {
		writeErr(w, err)
		return
	}

	msg, err := ks.Messages.GetMessage(r.Context(), mid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, messageResponse{
		MessageID: msg.MessageID,
		ParentIDs: msg.ParentIDs,
		Payload:   hex.EncodeToString(msg.Payload),
	})
}

// HandleMessageMetadata serves GET /<ks>/messages/<mid>/metadata.
func (d *Deps) HandleMessageMetadata(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	mid, err := parseHexID(chi.URLParam(r, "mid"))
	if err != nil {
		writeErr(w, err)
		return
	}

	md, err := ks.Messages.GetMetadata(r.Context(), mid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, metadataResponse{
		MessageID:      md.MessageID,
		ReferencedBy:   md.ReferencedBy,
		InclusionState: md.InclusionState,
	})
}

// HandleMessageChildren serves GET /<ks>/messages/<mid>/children.
func (d *Deps) HandleMessageChildren(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	mid, err := parseHexID(chi.URLParam(r, "mid"))
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
	recs, next, err := pageParents(r.Context(), ks, mid, pageSize, state)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, shapeParents(recs, boolParam(r, "expanded"), next))
}

// HandleMessagesByIndex serves GET /<ks>/messages?index=....
func (d *Deps) HandleMessagesByIndex(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	raw := r.URL.Query().Get("index")
	if raw == "" {
		writeErr(w, apperr.New(apperr.BadParse, "missing required query parameter: index"))
		return
	}

	var decoded []byte
	var hashedIndex string
	if boolParam(r, "utf8") {
		decoded = []byte(raw)
		hashedIndex = hex.EncodeToString(decoded)
	} else {
		decoded, err = hex.DecodeString(raw)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.BadParse, "invalid hex index tag: "+raw, err))
			return
		}
		hashedIndex = raw
	}
	if len(decoded) > maxIndexTagBytes {
		writeErr(w, apperr.New(apperr.IndexTooLarge, "index tag exceeds 64 bytes"))
		return
	}

	state, err := decodeState(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	pageSize := pageSizeParam(r, d.IndexPageSize)
	recs, next, err := pageIndexes(r.Context(), ks, hashedIndex, pageSize, state)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, shapeIndexes(recs, boolParam(r, "expanded"), next))
}
