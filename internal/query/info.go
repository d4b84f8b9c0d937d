package query

import "net/http"

// HandleInfo serves GET /<ks>/info.
func (d *Deps) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ks, name, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	healthy := ks.Session.Ping(r.Context()) == nil
	writeJSON(w, infoResponse{Name: name, Version: d.Version, IsHealthy: healthy})
}

// HandleService serves GET /service: the supervisor's recursive status tree.
func (d *Deps) HandleService(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.Supervisor.ServiceTree("permanode"))
}

// HandleSync serves GET /<ks>/sync.
func (d *Deps) HandleSync(w http.ResponseWriter, r *http.Request) {
	ks, name, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ranges, err := ks.Sync.ListRanges(r.Context(), name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, syncResponse{Ranges: ranges})
}
