package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/pkg/types"
)

// IndexesTable wraps the `indexes` table, partition key (indexation_tag,
// pid), clustered ms DESC.
type IndexesTable struct {
	sess *Session
}

func NewIndexesTable(sess *Session) *IndexesTable {
	return &IndexesTable{sess: sess}
}

func (t *IndexesTable) ForKey(hashedIndex string) *indexFetcher {
	return &indexFetcher{table: t, key: hashedIndex}
}

type indexFetcher struct {
	table *IndexesTable
	key   string
}

// Fetch satisfies paging.Fetcher[types.IndexRecord].
func (f *indexFetcher) Fetch(ctx context.Context, pid types.PartitionID, latestMilestone types.MilestoneIndex, pagingState []byte, limit int) ([]types.IndexRecord, []byte, error) {
	const stmt = `SELECT milestone, message_id, inclusion_state FROM indexes WHERE indexation_tag = ? AND partition = ? AND milestone <= ?`
	args := []interface{}{f.key, uint16(pid), uint32(latestMilestone)}
	return SelectPage(ctx, f.table.sess, stmt, args, pagingState, limit, scanIndexRows)
}

// InsertRecord stores one indexation fan-out row under the given partition.
func (t *IndexesTable) InsertRecord(ctx context.Context, hashedIndex string, pid types.PartitionID, rec types.IndexRecord) error {
	const stmt = `INSERT INTO indexes (indexation_tag, partition, milestone, message_id, inclusion_state) VALUES (?, ?, ?, ?, ?)`
	var inclusion interface{}
	if rec.InclusionState != nil {
		inclusion = string(*rec.InclusionState)
	}
	return Insert(ctx, t.sess, stmt, hashedIndex, uint16(pid), uint32(rec.MS), rec.MessageID, inclusion)
}

func scanIndexRows(iter *gocql.Iter) ([]types.IndexRecord, error) {
	var rows []types.IndexRecord
	var ms uint32
	var msgID string
	var inclusion *string
	for iter.Scan(&ms, &msgID, &inclusion) {
		rows = append(rows, types.IndexRecord{
			MS:             types.MilestoneIndex(ms),
			MessageID:      msgID,
			InclusionState: inclusionPtr(inclusion),
		})
	}
	return rows, nil
}
