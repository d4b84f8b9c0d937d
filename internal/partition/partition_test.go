package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"permanode/pkg/types"
)

func TestPID(t *testing.T) {
	p := New(100000, 1000)

	assert.Equal(t, types.PartitionID(0), p.PID(0))
	assert.Equal(t, types.PartitionID(0), p.PID(99999))
	assert.Equal(t, types.PartitionID(1), p.PID(100000))
	assert.Equal(t, types.PartitionID(1), p.PID(199999))

	// wraps around at partition_count chunks
	p2 := New(100, 1000)
	assert.Equal(t, types.PartitionID(0), p2.PID(100000))
}

func TestPIDWrapsAroundPartitionCount(t *testing.T) {
	p := New(100, 2)

	assert.Equal(t, types.PartitionID(0), p.PID(0))
	assert.Equal(t, types.PartitionID(1), p.PID(100))
	assert.Equal(t, types.PartitionID(0), p.PID(200))
	assert.Equal(t, types.PartitionID(1), p.PID(300))
}

func TestChunkBoundaries(t *testing.T) {
	p := New(100, 1000)

	assert.Equal(t, uint32(2), p.Chunk(250))
	assert.Equal(t, types.MilestoneIndex(200), p.ChunkStart(250))
	assert.Equal(t, types.MilestoneIndex(299), p.ChunkEnd(250))
}

func TestAllPIDs(t *testing.T) {
	p := New(100, 4)
	assert.Equal(t, []types.PartitionID{0, 1, 2, 3}, p.AllPIDs())
}
