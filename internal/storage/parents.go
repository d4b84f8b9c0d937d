package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/pkg/types"
)

// ParentsTable wraps the `parents` table, partition key (parent_message_id,
// pid), clustered ms DESC.
type ParentsTable struct {
	sess *Session
}

func NewParentsTable(sess *Session) *ParentsTable {
	return &ParentsTable{sess: sess}
}

// ForKey binds this table to one parent_message_id, yielding the
// paging.Fetcher the paging engine drives for that hint.
func (t *ParentsTable) ForKey(parentMessageID string) *parentFetcher {
	return &parentFetcher{table: t, key: parentMessageID}
}

type parentFetcher struct {
	table *ParentsTable
	key   string
}

// Fetch satisfies paging.Fetcher[types.ParentRecord].
func (f *parentFetcher) Fetch(ctx context.Context, pid types.PartitionID, latestMilestone types.MilestoneIndex, pagingState []byte, limit int) ([]types.ParentRecord, []byte, error) {
	const stmt = `SELECT milestone, child_message_id, inclusion_state FROM parents WHERE parent_message_id = ? AND partition = ? AND milestone <= ?`
	args := []interface{}{f.key, uint16(pid), uint32(latestMilestone)}
	return SelectPage(ctx, f.table.sess, stmt, args, pagingState, limit, scanParentRows)
}

// InsertRecord stores one parent fan-out row under the given partition.
func (t *ParentsTable) InsertRecord(ctx context.Context, parentMessageID string, pid types.PartitionID, rec types.ParentRecord) error {
	const stmt = `INSERT INTO parents (parent_message_id, partition, milestone, child_message_id, inclusion_state) VALUES (?, ?, ?, ?, ?)`
	var inclusion interface{}
	if rec.InclusionState != nil {
		inclusion = string(*rec.InclusionState)
	}
	return Insert(ctx, t.sess, stmt, parentMessageID, uint16(pid), uint32(rec.MS), rec.ChildMessageID, inclusion)
}

func scanParentRows(iter *gocql.Iter) ([]types.ParentRecord, error) {
	var rows []types.ParentRecord
	var ms uint32
	var child string
	var inclusion *string
	for iter.Scan(&ms, &child, &inclusion) {
		rows = append(rows, types.ParentRecord{
			MS:             types.MilestoneIndex(ms),
			ChildMessageID: child,
			InclusionState: inclusionPtr(inclusion),
		})
	}
	return rows, nil
}

func inclusionPtr(s *string) *types.InclusionState {
	if s == nil {
		return nil
	}
	v := types.InclusionState(*s)
	return &v
}
