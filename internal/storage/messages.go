package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// MessagesTable wraps the `messages` table (one row per message body) and
// its paired metadata rows.
type MessagesTable struct {
	sess *Session
}

func NewMessagesTable(sess *Session) *MessagesTable {
	return &MessagesTable{sess: sess}
}

// GetMessage loads one message by id.
func (t *MessagesTable) GetMessage(ctx context.Context, messageID string) (types.Message, error) {
	const stmt = `SELECT parent_ids, payload FROM messages WHERE message_id = ?`
	var parentIDs []string
	var payload []byte
	err := t.sess.cql.Query(stmt, messageID).WithContext(ctx).Consistency(gocql.One).Scan(&parentIDs, &payload)
	if err != nil {
		return types.Message{}, classify(err)
	}
	return types.Message{MessageID: messageID, ParentIDs: parentIDs, Payload: payload}, nil
}

// GetMetadata loads one message's confirmation metadata.
func (t *MessagesTable) GetMetadata(ctx context.Context, messageID string) (types.MessageMetadata, error) {
	const stmt = `SELECT referenced_by, inclusion_state FROM message_metadata WHERE message_id = ?`
	var refMS uint32
	var inclusion string
	err := t.sess.cql.Query(stmt, messageID).WithContext(ctx).Consistency(gocql.One).Scan(&refMS, &inclusion)
	if err != nil {
		return types.MessageMetadata{}, classify(err)
	}
	return types.MessageMetadata{
		MessageID:      messageID,
		ReferencedBy:   types.MilestoneIndex(refMS),
		InclusionState: types.InclusionState(inclusion),
	}, nil
}

// InsertMessage stores a message body.
func (t *MessagesTable) InsertMessage(ctx context.Context, msg types.Message) error {
	const stmt = `INSERT INTO messages (message_id, parent_ids, payload) VALUES (?, ?, ?)`
	return Insert(ctx, t.sess, stmt, msg.MessageID, msg.ParentIDs, msg.Payload)
}

// InsertMetadata stores a message's confirmation metadata.
func (t *MessagesTable) InsertMetadata(ctx context.Context, md types.MessageMetadata) error {
	const stmt = `INSERT INTO message_metadata (message_id, referenced_by, inclusion_state) VALUES (?, ?, ?)`
	return Insert(ctx, t.sess, stmt, md.MessageID, uint32(md.ReferencedBy), string(md.InclusionState))
}

// MessageExists reports whether a message id is already present. The
// collector does not call it; it detects duplicate Message events with its
// in-memory lru_msg cache only.
func (t *MessagesTable) MessageExists(ctx context.Context, messageID string) (bool, error) {
	_, err := t.GetMessage(ctx, messageID)
	if err == nil {
		return true, nil
	}
	if apperr.Is(err, apperr.NoResults) {
		return false, nil
	}
	return false, err
}
