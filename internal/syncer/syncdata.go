// Package syncer implements the gap-discovery and solidification dispatch
// state machine (C6): it tracks which milestone ranges are complete, known
// gaps, or still uncomplete, drives a fixed pool of solidifier workers, and
// hands milestone data to the archiver in strict ascending order.
package syncer

import "permanode/pkg/types"

// SyncData is the range list spec.md §4.6 calls sync_data, kept unsorted in
// insertion order; TakeLowestUncomplete and TakeLowestGap scan for the
// lowest start. Ranges
// not yet flagged Gap are "uncomplete" (never synced); ranges flagged Gap
// are known holes discovered after the fact. Complete ranges are not kept
// around once fully processed.
type SyncData struct {
	ranges []types.SyncRange
}

// NewSyncData seeds a SyncData from persisted ranges (storage.SyncTable's
// ListRanges), in any order.
func NewSyncData(ranges []types.SyncRange) *SyncData {
	sd := &SyncData{ranges: append([]types.SyncRange(nil), ranges...)}
	return sd
}

// Ranges returns every tracked range, for persistence.
func (sd *SyncData) Ranges() []types.SyncRange {
	return append([]types.SyncRange(nil), sd.ranges...)
}

// TakeLowestUncomplete removes and returns the lowest-start non-gap range.
func (sd *SyncData) TakeLowestUncomplete() (types.SyncRange, bool) {
	return sd.takeLowest(false)
}

// TakeLowestGap removes and returns the lowest-start gap range.
func (sd *SyncData) TakeLowestGap() (types.SyncRange, bool) {
	return sd.takeLowest(true)
}

func (sd *SyncData) takeLowest(gap bool) (types.SyncRange, bool) {
	best := -1
	for i, r := range sd.ranges {
		if r.Gap != gap {
			continue
		}
		if best == -1 || r.Start < sd.ranges[best].Start {
			best = i
		}
	}
	if best == -1 {
		return types.SyncRange{}, false
	}
	r := sd.ranges[best]
	sd.ranges = append(sd.ranges[:best], sd.ranges[best+1:]...)
	return r, true
}

// AddGap records a newly discovered gap, e.g. a bootstrap glitch or an
// unsolidified span noticed mid-range.
func (sd *SyncData) AddGap(start, end uint32) {
	if end < start {
		return
	}
	sd.ranges = append(sd.ranges, types.SyncRange{Start: start, End: end, Gap: true})
}

// AddUncomplete records a span that has never been synced, e.g. the
// open-ended tail above the highest milestone seen at startup.
func (sd *SyncData) AddUncomplete(start, end uint32) {
	if end < start {
		return
	}
	sd.ranges = append(sd.ranges, types.SyncRange{Start: start, End: end, Gap: false})
}

// rangeCursor walks a SyncRange one milestone at a time, as the active
// range being solidified.
type rangeCursor struct {
	next, end uint32
}

func newRangeCursor(r types.SyncRange) *rangeCursor {
	return &rangeCursor{next: r.Start, end: r.End}
}

// take returns the next milestone index in the range, or false once
// exhausted.
func (c *rangeCursor) take() (uint32, bool) {
	if c.next > c.end {
		return 0, false
	}
	ms := c.next
	c.next++
	return ms, true
}
