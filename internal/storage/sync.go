package storage

import (
	"github.com/gocql/gocql"

	"context"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// SyncTable wraps the `sync` table: the syncer's durable view of
// completed/gap ranges, keyed by keyspace so a restart can reload sync_data
// without replaying the whole MQTT backlog.
type SyncTable struct {
	sess *Session
}

func NewSyncTable(sess *Session) *SyncTable {
	return &SyncTable{sess: sess}
}

// ListRanges loads every persisted range for a keyspace, ordered as stored
// (clustering on start ascending). The syncer keeps them in the order given
// and picks the lowest start by scanning when it takes a range.
func (t *SyncTable) ListRanges(ctx context.Context, keyspace string) ([]types.SyncRange, error) {
	const stmt = `SELECT start, end, gap FROM sync WHERE keyspace = ?`
	q := t.sess.cql.Query(stmt, keyspace).WithContext(ctx).Consistency(gocql.One)
	iter := q.Iter()

	var ranges []types.SyncRange
	var start, end uint32
	var gap bool
	for iter.Scan(&start, &end, &gap) {
		ranges = append(ranges, types.SyncRange{Start: start, End: end, Gap: gap})
	}
	if err := iter.Close(); err != nil {
		return nil, apperr.Wrap(apperr.Other, "list sync ranges failed", err)
	}
	return ranges, nil
}

// UpsertRange persists one range, replacing any prior range with the same
// start (the syncer's unit of update when a range completes or splits).
func (t *SyncTable) UpsertRange(ctx context.Context, keyspace string, r types.SyncRange) error {
	const stmt = `INSERT INTO sync (keyspace, start, end, gap) VALUES (?, ?, ?, ?)`
	return Insert(ctx, t.sess, stmt, keyspace, r.Start, r.End, r.Gap)
}

// DeleteRange removes a range once it has been fully merged into its
// neighbor, keyed by its start.
func (t *SyncTable) DeleteRange(ctx context.Context, keyspace string, start uint32) error {
	const stmt = `DELETE FROM sync WHERE keyspace = ? AND start = ?`
	return Insert(ctx, t.sess, stmt, keyspace, start)
}
