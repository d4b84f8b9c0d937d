package paging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permanode/internal/partition"
	"permanode/pkg/types"
)

type fakeRecord struct {
	ms types.MilestoneIndex
}

func (r fakeRecord) Milestone() types.MilestoneIndex { return r.ms }

// fakeHints returns a fixed set of (ms, pid) entries for any hint.
type fakeHints struct {
	entries []types.Hint
}

func (f fakeHints) Lookup(ctx context.Context, hint string) ([]types.Hint, error) {
	return f.entries, nil
}

// fakeFetcher serves records from an in-memory per-partition descending
// list, honoring a simple integer offset as its "paging state".
type fakeFetcher struct {
	data map[types.PartitionID][]fakeRecord
}

// Fetch returns rows bounded to ms <= latestMilestone (as a real CQL select
// parameterized on the session snapshot would), applying pagingState as a
// plain offset within that bounded, descending-by-ms slice.
func (f *fakeFetcher) Fetch(ctx context.Context, pid types.PartitionID, latestMilestone types.MilestoneIndex, pagingState []byte, limit int) ([]fakeRecord, []byte, error) {
	rows := f.data[pid]
	start := 0
	for start < len(rows) && rows[start].ms > latestMilestone {
		start++
	}
	filtered := rows[start:]

	offset := 0
	if len(pagingState) == 1 {
		offset = int(pagingState[0])
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	if offset >= len(filtered) {
		return nil, nil, nil
	}
	page := filtered[offset:end]
	var next []byte
	if end < len(filtered) {
		next = []byte{byte(end)}
	}
	return page, next, nil
}

func descending(start, end int) []fakeRecord {
	var out []fakeRecord
	for ms := start; ms >= end; ms-- {
		out = append(out, fakeRecord{ms: types.MilestoneIndex(ms)})
	}
	return out
}

// Scenario A: single partition, all 250 records share milestone 100;
// page_size=100 must still return every record via the spill-over rule,
// and the session ends (nil cookie).
func TestScenarioA_SinglePartitionSpillOver(t *testing.T) {
	var rows []fakeRecord
	for i := 0; i < 250; i++ {
		rows = append(rows, fakeRecord{ms: 100})
	}

	fetcher := &fakeFetcher{data: map[types.PartitionID][]fakeRecord{7: rows}}
	engine := &Engine[fakeRecord]{
		Partitioner: partition.New(100, 1000),
		Hints:       fakeHints{entries: []types.Hint{{Milestone: 100, Partition: 7}}},
		Fetcher:     fetcher,
		FetchSize:   2,
	}

	results, state, err := engine.Page(context.Background(), "hint", 100, nil)
	require.NoError(t, err)
	assert.Len(t, results, 250)
	assert.Nil(t, state)
}

// Scenario B: two partitions split at a chunk boundary; the engine must
// exhaust P1 down to its chunk boundary before crossing to P2.
func TestScenarioB_TwoPartitionsChunkBoundary(t *testing.T) {
	p1 := descending(299, 200) // P1 holds ms 200..299
	p2 := descending(199, 100) // P2 holds ms 100..199

	fetcher := &fakeFetcher{data: map[types.PartitionID][]fakeRecord{1: p1, 2: p2}}
	engine := &Engine[fakeRecord]{
		Partitioner: partition.New(100, 1000),
		Hints: fakeHints{entries: []types.Hint{
			{Milestone: 299, Partition: 1},
			{Milestone: 199, Partition: 2},
		}},
		Fetcher:   fetcher,
		FetchSize: 2,
	}

	const pageSize = 30

	page1, state, err := engine.Page(context.Background(), "hint", pageSize, nil)
	require.NoError(t, err)
	assert.Len(t, page1, pageSize)
	require.NotNil(t, state)
	for _, r := range page1 {
		assert.GreaterOrEqual(t, int(r.Milestone()), 270)
	}

	var all []fakeRecord
	all = append(all, page1...)
	for state != nil {
		var page []fakeRecord
		page, state, err = engine.Page(context.Background(), "hint", pageSize, state)
		require.NoError(t, err)
		all = append(all, page...)
	}

	assert.Len(t, all, 200)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, int(all[i-1].Milestone()), int(all[i].Milestone()))
	}
	seen := make(map[int]bool, len(all))
	for _, r := range all {
		assert.False(t, seen[int(r.Milestone())], "duplicate ms %d", r.Milestone())
		seen[int(r.Milestone())] = true
	}
}

func TestNoResultsWhenHintEmpty(t *testing.T) {
	engine := &Engine[fakeRecord]{
		Partitioner: partition.New(100, 1000),
		Hints:       fakeHints{entries: nil},
		Fetcher:     &fakeFetcher{data: map[types.PartitionID][]fakeRecord{}},
		FetchSize:   2,
	}

	_, _, err := engine.Page(context.Background(), "missing", 50, nil)
	require.Error(t, err)
}

func TestRotatePreservesRelativeOrder(t *testing.T) {
	order := []types.PartitionID{5, 1, 9, 3}
	got := rotate(order, 9)
	assert.Equal(t, []types.PartitionID{9, 3, 5, 1}, got)
}
