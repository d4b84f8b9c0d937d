package query

import (
	"math"
	"net/http"
	"strconv"

	"permanode/internal/apperr"
)

// defaultAnalyticsEnd mirrors the original's [1, i32::MAX) default range.
const defaultAnalyticsEnd = uint32(math.MaxInt32)

// HandleAnalytics serves GET /<ks>/analytics.
func (d *Deps) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ks, name, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	start := uint32(1)
	if raw := r.URL.Query().Get("start"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.BadParse, "malformed start", err))
			return
		}
		start = uint32(v)
	}

	end := defaultAnalyticsEnd
	if raw := r.URL.Query().Get("end"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeErr(w, apperr.Wrap(apperr.BadParse, "malformed end", err))
			return
		}
		end = uint32(v)
	}

	ranges, err := ks.Analytics.FetchRange(r.Context(), name, start, end)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, analyticsResponse{Ranges: ranges})
}
