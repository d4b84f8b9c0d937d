package query

import (
	"permanode/internal/supervisor"
)

// Deps is everything the façade's handlers need, built once at startup and
// shared read-only across every request goroutine.
type Deps struct {
	Keyspaces       map[string]*KeyspaceStore
	DefaultPageSize int
	IndexPageSize   int
	Version         string
	Supervisor      *supervisor.Supervisor
}

func (d *Deps) lookupKeyspace(name string) (*KeyspaceStore, bool) {
	ks, ok := d.Keyspaces[name]
	return ks, ok
}
