package query

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// HandleMilestone serves GET /<ks>/milestones/<idx>.
func (d *Deps) HandleMilestone(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	raw := chi.URLParam(r, "idx")
	idx, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeErr(w, apperr.Wrap(apperr.BadParse, "malformed milestone index: "+raw, err))
		return
	}

	rec, err := ks.Milestones.GetMilestone(r.Context(), types.MilestoneIndex(idx))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, milestoneResponse{MS: rec.Milestone, MessageID: rec.MessageID, Timestamp: rec.Timestamp})
}
