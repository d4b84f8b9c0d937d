// Package paging implements the cross-partition ordered page reconstruction
// engine: given a hint (an address, index tag, or parent message id), it
// returns one page of records ordered by milestone index descending, built
// by interleaving the physical partitions that hold the hint's records.
package paging

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"permanode/internal/apperr"
	"permanode/internal/partition"
	"permanode/pkg/types"
)

// Record is any row a partition fetch returns; the engine only needs its
// milestone index to apply the chunk and spill-over rules.
type Record interface {
	Milestone() types.MilestoneIndex
}

// HintLookup resolves a logical key to the set of (ms, pid) partitions
// holding at least one of its records.
type HintLookup interface {
	Lookup(ctx context.Context, hint string) ([]types.Hint, error)
}

// Fetcher issues one bounded, paging-state-aware select against a single
// partition, constrained to records at or below latestMilestone.
type Fetcher[T Record] interface {
	Fetch(ctx context.Context, pid types.PartitionID, latestMilestone types.MilestoneIndex, pagingState []byte, limit int) (rows []T, nextPagingState []byte, err error)
}

// Engine runs the paging algorithm for one record type over one
// Partitioner's chunk layout.
type Engine[T Record] struct {
	Partitioner partition.Partitioner
	Hints       HintLookup
	Fetcher     Fetcher[T]
	FetchSize   int
}

// cursor is the per-partition slot of the "small open-addressed map"
// described by the design notes: the rows buffered from the last fetch, the
// storage-level paging state to continue them, and whether this partition
// is known to have nothing left.
type cursor[T Record] struct {
	buffer      []T
	pagingState []byte
	depleted    bool
	fetched     bool
}

// Page returns one page of records for hint, honoring the resumable cookie
// in state (nil, or a state with no PartitionIDs, for the first page of a
// session). The returned StateData is nil once the session is exhausted.
func (e *Engine[T]) Page(ctx context.Context, hint string, pageSize int, state *types.StateData) ([]T, *types.StateData, error) {
	if pageSize <= 0 {
		pageSize = 1
	}
	fetchSize := e.FetchSize
	if fetchSize <= 0 {
		fetchSize = 1
	}

	partitionIDs, latestMilestone, prevLastPartitionID, prevPagingState, err := e.setup(ctx, hint, state)
	if err != nil {
		return nil, nil, err
	}

	lastIndexMap := make(map[types.PartitionID]types.MilestoneIndex, len(partitionIDs))
	lastIndexMap[partitionIDs[0].Partition] = latestMilestone
	cursors := make(map[types.PartitionID]*cursor[T], len(partitionIDs))
	for _, mark := range partitionIDs {
		cursors[mark.Partition] = &cursor[T]{}
	}
	depletedCount := 0
	if prevLastPartitionID != nil {
		if c, ok := cursors[*prevLastPartitionID]; ok {
			// A nil forwarded paging state does not mean this partition is
			// exhausted: the previous page may simply have stopped at a
			// page-size boundary mid-chunk, where no storage cursor needs
			// carrying because the next call's (lower) latestMilestone
			// ceiling re-selects the remainder on its own.
			c.pagingState = prevPagingState
		}
	}

	var results []T
	idx := 0
	advance := func() { idx = (idx + 1) % len(partitionIDs) }

	for depletedCount < len(partitionIDs) {
		mark := partitionIDs[idx]
		pid := mark.Partition
		c := cursors[pid]

		if c.depleted {
			advance()
			continue
		}

		if !c.fetched {
			if err := e.prefetch(ctx, partitionIDs, idx, cursors, latestMilestone, pageSize, fetchSize); err != nil {
				return nil, nil, fmt.Errorf("paging: prefetch: %w", err)
			}
		}

		if _, ok := lastIndexMap[pid]; !ok {
			lastIndexMap[pid] = mark.Milestone
		}

		if len(c.buffer) == 0 {
			// A non-nil paging state means storage has more rows behind
			// the cursor, possibly still within the same chunk as the
			// last row we accepted (the spill-over rule can span more
			// than one fetch batch). That always takes priority over
			// stopping on a full page: only a truly exhausted partition
			// (paging_state == nil) can end the page here.
			if c.pagingState != nil {
				want := pageSize - len(results)
				if want < 1 {
					want = 1
				}
				more, next, fetchErr := e.Fetcher.Fetch(ctx, pid, latestMilestone, c.pagingState, want)
				if fetchErr != nil {
					return nil, nil, fmt.Errorf("paging: fetch pid %d: %w", pid, fetchErr)
				}
				c.buffer = more
				c.pagingState = next
				continue
			}
			// paging_state == nil: storage has confirmed there is nothing
			// left for this partition at or below latestMilestone. That
			// holds for the rest of the session since the ceiling never
			// moves backward, so this is unconditional, not contingent on
			// whether we already have a full page.
			c.depleted = true
			depletedCount++
			advance()
			continue
		}

		yielded := false
		for len(c.buffer) > 0 {
			row := c.buffer[0]
			ms := row.Milestone()
			lastMS := lastIndexMap[pid]

			if e.Partitioner.Chunk(ms) == e.Partitioner.Chunk(lastMS) {
				if len(results) < pageSize {
					results = append(results, row)
					c.buffer = c.buffer[1:]
					lastIndexMap[pid] = ms
					continue
				}
				if ms == lastMS {
					results = append(results, row)
					c.buffer = c.buffer[1:]
					continue
				}
				lastPid := pid
				stopMS := ms
				return results, &types.StateData{
					LastPartitionID:    &lastPid,
					LastMilestoneIndex: &stopMS,
					PartitionIDs:       partitionIDs,
				}, nil
			}

			lastIndexMap[pid] = ms
			yielded = true
			break
		}

		if yielded {
			advance()
		}
		// If the buffer drained without a chunk-boundary yield or an
		// early return, loop again at the same idx: the top of the loop
		// re-evaluates the now-empty buffer and either re-fetches or
		// marks the partition depleted.
	}

	return results, nil, nil
}

// prefetch issues up to fetchSize concurrent fetches for partitions that
// have not yet been fetched: the current partition and the next
// non-depleted ones in traversal order.
func (e *Engine[T]) prefetch(ctx context.Context, partitionIDs []types.PartitionMark, idx int, cursors map[types.PartitionID]*cursor[T], latestMilestone types.MilestoneIndex, pageSize, fetchSize int) error {
	type job struct {
		pid types.PartitionID
		c   *cursor[T]
	}
	var jobs []job

	for i := 0; i < len(partitionIDs) && len(jobs) < fetchSize; i++ {
		mark := partitionIDs[(idx+i)%len(partitionIDs)]
		c := cursors[mark.Partition]
		if c.depleted || c.fetched {
			continue
		}
		jobs = append(jobs, job{pid: mark.Partition, c: c})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		j.c.fetched = true
		g.Go(func() error {
			rows, next, err := e.Fetcher.Fetch(gctx, j.pid, latestMilestone, j.c.pagingState, pageSize)
			if err != nil {
				return fmt.Errorf("pid %d: %w", j.pid, err)
			}
			j.c.buffer = rows
			j.c.pagingState = next
			return nil
		})
	}
	return g.Wait()
}

// setup resolves the partition traversal order and the snapshot ceiling
// milestone, for either the first page of a session or a resumed one.
func (e *Engine[T]) setup(ctx context.Context, hint string, state *types.StateData) (partitionIDs []types.PartitionMark, latestMilestone types.MilestoneIndex, prevLastPartitionID *types.PartitionID, prevPagingState []byte, err error) {
	if state.Resumed() {
		partitionIDs = state.PartitionIDs
		if state.LastMilestoneIndex != nil {
			latestMilestone = *state.LastMilestoneIndex
		} else {
			latestMilestone = partitionIDs[0].Milestone
		}
		return partitionIDs, latestMilestone, state.LastPartitionID, state.PagingState, nil
	}

	entries, lookupErr := e.Hints.Lookup(ctx, hint)
	if lookupErr != nil {
		return nil, 0, nil, nil, fmt.Errorf("paging: hint lookup: %w", lookupErr)
	}
	if len(entries) == 0 {
		return nil, 0, nil, nil, apperr.New(apperr.NoResults, "no partitions hold records for this hint")
	}

	maxMS := make(map[types.PartitionID]types.MilestoneIndex)
	var order []types.PartitionID
	var firstPid types.PartitionID
	var overallMax types.MilestoneIndex
	first := true

	for _, entry := range entries {
		if _, seen := maxMS[entry.Partition]; !seen {
			order = append(order, entry.Partition)
			maxMS[entry.Partition] = entry.Milestone
		} else if entry.Milestone > maxMS[entry.Partition] {
			maxMS[entry.Partition] = entry.Milestone
		}
		if first || entry.Milestone > overallMax {
			overallMax = entry.Milestone
			firstPid = entry.Partition
			first = false
		}
	}

	rotated := rotate(order, firstPid)
	partitionIDs = make([]types.PartitionMark, len(rotated))
	for i, pid := range rotated {
		partitionIDs[i] = types.PartitionMark{Milestone: maxMS[pid], Partition: pid}
	}

	return partitionIDs, overallMax, nil, nil, nil
}

// rotate cyclically shifts order so that target is first, preserving the
// relative order of the rest. It does not sort.
func rotate(order []types.PartitionID, target types.PartitionID) []types.PartitionID {
	at := 0
	for i, pid := range order {
		if pid == target {
			at = i
			break
		}
	}
	out := make([]types.PartitionID, 0, len(order))
	out = append(out, order[at:]...)
	out = append(out, order[:at]...)
	return out
}
