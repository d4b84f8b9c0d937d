// Package partition implements the deterministic milestone-to-partition
// mapping shared by the collector, syncer, and paging engine.
package partition

import "permanode/pkg/types"

// Partitioner groups chunk_size consecutive milestones into one physical
// partition row, cycling through partition_count partitions.
//
// PID is a pure function of the milestone index: the same milestone always
// maps to the same partition, independent of any collector or solidifier
// pool size.
type Partitioner struct {
	ChunkSize      uint32
	PartitionCount uint16
}

// New builds a Partitioner. Both arguments must be positive; callers are
// expected to have validated this via config.Config.Validate.
func New(chunkSize uint32, partitionCount uint16) Partitioner {
	return Partitioner{ChunkSize: chunkSize, PartitionCount: partitionCount}
}

// PID returns the partition id owning milestone ms: (ms / chunk_size) mod
// partition_count.
func (p Partitioner) PID(ms types.MilestoneIndex) types.PartitionID {
	chunk := uint32(ms) / p.ChunkSize
	return types.PartitionID(chunk % uint32(p.PartitionCount))
}

// Chunk returns the chunk index containing ms, i.e. ms / chunk_size. Two
// milestones are "in the same chunk" on a partition when their Chunk values
// are equal; this is what the paging engine's spill-over rule tests.
func (p Partitioner) Chunk(ms types.MilestoneIndex) uint32 {
	return uint32(ms) / p.ChunkSize
}

// ChunkStart returns the first milestone of the chunk containing ms.
func (p Partitioner) ChunkStart(ms types.MilestoneIndex) types.MilestoneIndex {
	return types.MilestoneIndex(p.Chunk(ms) * p.ChunkSize)
}

// ChunkEnd returns the last milestone of the chunk containing ms
// (inclusive).
func (p Partitioner) ChunkEnd(ms types.MilestoneIndex) types.MilestoneIndex {
	return p.ChunkStart(ms) + types.MilestoneIndex(p.ChunkSize) - 1
}

// AllPIDs returns every partition id in [0, partition_count).
func (p Partitioner) AllPIDs() []types.PartitionID {
	out := make([]types.PartitionID, p.PartitionCount)
	for i := range out {
		out[i] = types.PartitionID(i)
	}
	return out
}
