package syncer

import (
	"context"
	"fmt"
	"math"

	"permanode/internal/logging"
	"permanode/pkg/types"
)

// Solidifier fetches and assembles one milestone's confirmed data from the
// network. Out of scope per spec.md §1 (an external collaborator); the
// syncer only dispatches requests and consumes results.
type Solidifier interface {
	Solidify(ctx context.Context, ms types.MilestoneIndex) (types.MilestoneRecord, error)
}

// Archiver receives solidified milestone data in strict ascending order,
// contiguous within any processed range.
type Archiver interface {
	Archive(ctx context.Context, md MilestoneData) error
}

// Persister durably tracks sync_data across restarts.
type Persister interface {
	ListRanges(ctx context.Context, keyspace string) ([]types.SyncRange, error)
	UpsertRange(ctx context.Context, keyspace string, r types.SyncRange) error
	DeleteRange(ctx context.Context, keyspace string, start uint32) error
}

// AskKind selects which kind of range the Ask event should activate.
type AskKind int

const (
	AskComplete AskKind = iota
	AskFillGaps
	AskUpdateSyncData
)

type activeKind int

const (
	activeNone activeKind = iota
	activeComplete
	activeFillGaps
)

type eventKind int

const (
	evProcess eventKind = iota
	evAsk
	evMilestoneData
	evShutdown
)

type event struct {
	kind eventKind
	ask  AskKind
	md   MilestoneData
}

// Config controls solidifier pool sizing.
type Config struct {
	SolidifierCount int
	Keyspace        string
}

// Syncer is the channel-driven state machine of spec.md §4.6.
type Syncer struct {
	cfg        Config
	persister  Persister
	archiver   Archiver
	solidifier Solidifier

	inbox         chan event
	solidifyChans []chan types.MilestoneIndex

	syncData *SyncData
	active   activeKind
	curRange *rangeCursor
	rangeRef types.SyncRange
	pending  int
	highest  types.MilestoneIndex
	next     types.MilestoneIndex
	heap     milestoneHeap

	log *logging.EnhancedLogger
}

// New builds a Syncer and loads its initial sync_data from the persister.
func New(ctx context.Context, cfg Config, persister Persister, archiver Archiver, solidifier Solidifier) (*Syncer, error) {
	ranges, err := persister.ListRanges(ctx, cfg.Keyspace)
	if err != nil {
		return nil, fmt.Errorf("syncer: load sync data: %w", err)
	}

	s := &Syncer{
		cfg:        cfg,
		persister:  persister,
		archiver:   archiver,
		solidifier: solidifier,
		inbox:      make(chan event, 64),
		syncData:   NewSyncData(ranges),
		log:        logging.SyncerLogger,
	}
	s.solidifyChans = make([]chan types.MilestoneIndex, cfg.SolidifierCount)
	for i := range s.solidifyChans {
		s.solidifyChans[i] = make(chan types.MilestoneIndex, 16)
	}
	return s, nil
}

// Ask requests the syncer begin processing a range kind; refused (logged,
// not fatal) if a range is already active.
func (s *Syncer) Ask(kind AskKind) { s.send(event{kind: evAsk, ask: kind}) }

// Process nudges the syncer to dispatch more solidify requests from the
// active range.
func (s *Syncer) Process() { s.send(event{kind: evProcess}) }

// milestoneDataIn is how a solidifier worker reports a finished result.
func (s *Syncer) milestoneDataIn(md MilestoneData) { s.send(event{kind: evMilestoneData, md: md}) }

// Shutdown stops the event loop.
func (s *Syncer) Shutdown() { s.send(event{kind: evShutdown}) }

func (s *Syncer) send(ev event) {
	select {
	case s.inbox <- ev:
	default:
		s.log.Error("syncer inbox full, dropping event")
	}
}

// Run drives the event loop and the solidifier worker pool until Shutdown
// or ctx cancellation.
func (s *Syncer) Run(ctx context.Context) error {
	for i, ch := range s.solidifyChans {
		go s.runSolidifier(ctx, i, ch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			switch ev.kind {
			case evProcess:
				s.processMore(ctx)
			case evAsk:
				s.handleAsk(ctx, ev.ask)
			case evMilestoneData:
				s.handleMilestoneData(ctx, ev.md)
			case evShutdown:
				return nil
			}
		}
	}
}

func (s *Syncer) runSolidifier(ctx context.Context, id int, ch <-chan types.MilestoneIndex) {
	for {
		select {
		case <-ctx.Done():
			return
		case ms, ok := <-ch:
			if !ok {
				return
			}
			rec, err := s.solidifier.Solidify(ctx, ms)
			if err != nil {
				s.log.WithError(err).Error("solidify failed", "milestone", uint32(ms), "solidifier", id)
				continue
			}
			s.milestoneDataIn(MilestoneData{Milestone: ms, Record: rec})
		}
	}
}

func (s *Syncer) handleAsk(ctx context.Context, ask AskKind) {
	if s.active != activeNone {
		s.log.Error("ask refused, a range is already active", "ask", int(ask))
		return
	}
	switch ask {
	case AskComplete:
		s.complete(ctx)
	case AskFillGaps:
		s.fillGaps(ctx)
	case AskUpdateSyncData:
		s.reloadSyncData(ctx)
	}
}

func (s *Syncer) reloadSyncData(ctx context.Context) {
	ranges, err := s.persister.ListRanges(ctx, s.cfg.Keyspace)
	if err != nil {
		s.log.WithError(err).Error("reload sync data failed")
		return
	}
	s.syncData = NewSyncData(ranges)
}

func (s *Syncer) complete(ctx context.Context) {
	gap, ok := s.syncData.TakeLowestUncomplete()
	if !ok {
		s.log.Info("no more uncomplete ranges")
		return
	}
	s.activateRange(ctx, activeComplete, gap)
}

func (s *Syncer) fillGaps(ctx context.Context) {
	gap, ok := s.syncData.TakeLowestGap()
	if !ok {
		s.log.Info("no more gaps")
		return
	}
	s.activateRange(ctx, activeFillGaps, gap)
}

// maxOpenEnded is the sentinel end value marking an open-ended tail range,
// clamped to s.highest once that becomes known.
const maxOpenEnded = math.MaxUint32

func (s *Syncer) activateRange(ctx context.Context, kind activeKind, gap types.SyncRange) {
	if gap.End == maxOpenEnded {
		if s.highest <= types.MilestoneIndex(gap.Start) {
			s.log.Error("cannot clamp open-ended range, highest too low", "start", gap.Start)
			s.syncData.ranges = append(s.syncData.ranges, gap)
			return
		}
		gap.End = uint32(s.highest)
	}

	s.next = types.MilestoneIndex(gap.Start)
	s.active = kind
	s.rangeRef = gap
	s.curRange = newRangeCursor(gap)
	s.triggerProcessMore(ctx)
}

func (s *Syncer) triggerProcessMore(ctx context.Context) {
	if s.pending == 0 {
		s.processMore(ctx)
	}
}

func (s *Syncer) processMore(ctx context.Context) {
	if s.active == activeNone {
		return
	}
	for i := 0; i < s.cfg.SolidifierCount; i++ {
		ms, ok := s.curRange.take()
		if !ok {
			if s.pending == 0 {
				finished := s.rangeRef
				wasFillGaps := s.active == activeFillGaps
				s.active = activeNone
				s.onRangeFinished(ctx, finished, wasFillGaps)
			}
			return
		}
		s.requestSolidify(types.MilestoneIndex(ms))
		s.pending++
	}
}

func (s *Syncer) onRangeFinished(ctx context.Context, finished types.SyncRange, wasFillGaps bool) {
	if err := s.persister.DeleteRange(ctx, s.cfg.Keyspace, finished.Start); err != nil {
		s.log.WithError(err).Error("delete finished range failed", "start", finished.Start)
	}
	if wasFillGaps {
		s.fillGaps(ctx)
	} else {
		s.complete(ctx)
	}
}

func (s *Syncer) requestSolidify(ms types.MilestoneIndex) {
	id := uint32(ms) % uint32(s.cfg.SolidifierCount)
	select {
	case s.solidifyChans[id] <- ms:
	default:
		s.log.Error("solidifier channel full", "solidifier", id, "milestone", uint32(ms))
	}
}

func (s *Syncer) handleMilestoneData(ctx context.Context, md MilestoneData) {
	s.pending--
	s.heap.push(md)

	if s.highest == 0 && s.pending == 0 {
		s.drainBootstrap(ctx)
	} else if s.highest != 0 {
		s.drainSteadyState(ctx)
	}

	if s.pending == 0 {
		s.processMore(ctx)
	}
}

// drainBootstrap handles the very first milestones delivered before any
// range was ever requested (spec.md Scenario F).
func (s *Syncer) drainBootstrap(ctx context.Context) {
	first := s.heap.pop()
	s.highest = first.Milestone
	s.next = s.highest + 1
	s.archive(ctx, first)

	for {
		md, ok := s.heap.peek()
		if !ok {
			break
		}
		s.heap.pop()
		if s.next != md.Milestone {
			gapStart := uint32(s.next)
			gapEnd := uint32(md.Milestone) - 1
			s.log.Error("bootstrap glitch detected", "gap_start", gapStart, "gap_end", gapEnd)
			s.syncData.AddGap(gapStart, gapEnd)
			s.highest = md.Milestone
		}
		s.next = md.Milestone + 1
		s.archive(ctx, md)
	}
}

func (s *Syncer) drainSteadyState(ctx context.Context) {
	for {
		top, ok := s.heap.peek()
		if !ok || top.Milestone != s.next {
			break
		}
		s.heap.pop()
		s.archive(ctx, top)
		s.next++
	}
}

func (s *Syncer) archive(ctx context.Context, md MilestoneData) {
	if err := s.archiver.Archive(ctx, md); err != nil {
		s.log.WithError(err).Error("archive failed", "milestone", uint32(md.Milestone))
	}
}
