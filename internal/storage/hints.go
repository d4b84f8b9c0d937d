package storage

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// HintsTable wraps the `hints` table: partition key (key, variant), one row
// per (ms, pid) a logical key has records in.
type HintsTable struct {
	sess *Session
}

func NewHintsTable(sess *Session) *HintsTable {
	return &HintsTable{sess: sess}
}

// lookup reads every hint row for one (key, variant). The ParentHints,
// AddressHints and IndexHints adapters below bind a variant to it and
// expose it as the Lookup method of paging.HintLookup.
func (t *HintsTable) lookup(ctx context.Context, variant types.HintVariant, key string) ([]types.Hint, error) {
	const stmt = `SELECT milestone, partition FROM hints WHERE key = ? AND variant = ?`

	var entries []types.Hint
	q := t.sess.cql.Query(stmt, key, string(variant)).WithContext(ctx).Consistency(gocql.One)
	iter := q.Iter()

	var ms uint32
	var pid uint16
	for iter.Scan(&ms, &pid) {
		entries = append(entries, types.Hint{
			HintString: key,
			Variant:    variant,
			Milestone:  types.MilestoneIndex(ms),
			Partition:  types.PartitionID(pid),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, apperr.Wrap(apperr.Other, "hints lookup failed", err)
	}
	return entries, nil
}

// InsertHint fires the fan-out's hint row for a logical key's partition.
func (t *HintsTable) InsertHint(ctx context.Context, variant types.HintVariant, key string, ms types.MilestoneIndex, pid types.PartitionID) error {
	const stmt = `INSERT INTO hints (key, variant, milestone, partition) VALUES (?, ?, ?, ?)`
	if err := Insert(ctx, t.sess, stmt, key, string(variant), uint32(ms), uint16(pid)); err != nil {
		return fmt.Errorf("storage: insert hint: %w", err)
	}
	return nil
}

// ParentHints adapts HintsTable to paging.HintLookup for parent lookups.
type ParentHints struct{ t *HintsTable }

func NewParentHints(sess *Session) ParentHints { return ParentHints{t: NewHintsTable(sess)} }

func (h ParentHints) Lookup(ctx context.Context, hint string) ([]types.Hint, error) {
	return h.t.lookup(ctx, types.HintParent, hint)
}

// AddressHints adapts HintsTable to paging.HintLookup for address lookups.
type AddressHints struct{ t *HintsTable }

func NewAddressHints(sess *Session) AddressHints { return AddressHints{t: NewHintsTable(sess)} }

func (h AddressHints) Lookup(ctx context.Context, hint string) ([]types.Hint, error) {
	return h.t.lookup(ctx, types.HintAddress, hint)
}

// IndexHints adapts HintsTable to paging.HintLookup for indexation lookups.
type IndexHints struct{ t *HintsTable }

func NewIndexHints(sess *Session) IndexHints { return IndexHints{t: NewHintsTable(sess)} }

func (h IndexHints) Lookup(ctx context.Context, hint string) ([]types.Hint, error) {
	return h.t.lookup(ctx, types.HintIndex, hint)
}
