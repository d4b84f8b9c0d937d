package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/pkg/types"
)

// MilestonesTable wraps the `milestones` table, one row per confirmed
// milestone index.
type MilestonesTable struct {
	sess *Session
}

func NewMilestonesTable(sess *Session) *MilestonesTable {
	return &MilestonesTable{sess: sess}
}

// GetMilestone loads one milestone by index.
func (t *MilestonesTable) GetMilestone(ctx context.Context, ms types.MilestoneIndex) (types.MilestoneRecord, error) {
	const stmt = `SELECT message_id, timestamp FROM milestones WHERE milestone = ?`
	var messageID string
	var timestamp int64
	err := t.sess.cql.Query(stmt, uint32(ms)).WithContext(ctx).Consistency(gocql.One).Scan(&messageID, &timestamp)
	if err != nil {
		return types.MilestoneRecord{}, classify(err)
	}
	return types.MilestoneRecord{Milestone: ms, MessageID: messageID, Timestamp: timestamp}, nil
}

// InsertMilestone stores a confirmed milestone. The syncer does not call
// it; solidified milestones go from the syncer to its Archiver.
func (t *MilestonesTable) InsertMilestone(ctx context.Context, rec types.MilestoneRecord) error {
	const stmt = `INSERT INTO milestones (milestone, message_id, timestamp) VALUES (?, ?, ?)`
	return Insert(ctx, t.sess, stmt, uint32(rec.Milestone), rec.MessageID, rec.Timestamp)
}
