package syncer

import (
	"container/heap"

	"permanode/pkg/types"
)

// MilestoneData is one solidified milestone, as handed from a solidifier
// worker back to the syncer and, once ordered, on to the archiver.
type MilestoneData struct {
	Milestone types.MilestoneIndex
	Record    types.MilestoneRecord
}

// milestoneHeap is the min-heap keyed by ms spec.md §4.6 calls
// milestones_data: solidifier results arrive out of order and are held
// here until they can be drained in ascending sequence.
type milestoneHeap []MilestoneData

func (h milestoneHeap) Len() int            { return len(h) }
func (h milestoneHeap) Less(i, j int) bool  { return h[i].Milestone < h[j].Milestone }
func (h milestoneHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *milestoneHeap) Push(x interface{}) { *h = append(*h, x.(MilestoneData)) }
func (h *milestoneHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *milestoneHeap) push(md MilestoneData) { heap.Push(h, md) }

func (h *milestoneHeap) peek() (MilestoneData, bool) {
	if h.Len() == 0 {
		return MilestoneData{}, false
	}
	return (*h)[0], true
}

func (h *milestoneHeap) pop() MilestoneData {
	return heap.Pop(h).(MilestoneData)
}
