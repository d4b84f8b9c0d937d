package types

// PartitionMark is one entry of a StateData's partition_ids list: the
// partition pid, and the milestone its hint entry was observed at.
type PartitionMark struct {
	Milestone MilestoneIndex
	Partition PartitionID
}

// StateData is the paging engine's resumable cursor. It is serialized by
// internal/codec and carried to/from HTTP clients hex-encoded.
//
// partition_ids is established once, on the first page of a session, and
// never changes afterwards; everything else describes where the previous
// page stopped.
type StateData struct {
	LastPartitionID     *PartitionID
	LastMilestoneIndex  *MilestoneIndex
	PagingState         []byte
	PartitionIDs        []PartitionMark
}

// Resumed reports whether this cookie carries a previously-established
// partition order, i.e. whether this is a resumed paging session rather
// than the first page of one.
func (s *StateData) Resumed() bool {
	return s != nil && len(s.PartitionIDs) > 0
}
