package collector

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"permanode/internal/logging"
	"permanode/internal/partition"
	"permanode/pkg/types"
)

// cachedMessage is lru_msg's value: a message body and its decoded payload.
// EstMS is never assigned by the collector and stays zero; a join takes the
// referencing milestone from the metadata's ReferencedBy instead.
type cachedMessage struct {
	EstMS   types.MilestoneIndex
	Msg     types.Message
	Payload *types.DecodedPayload
}

// Config controls cache sizing and keyspace selection.
type Config struct {
	MsgCacheSize    int
	MsgRefCacheSize int
	DefaultKeyspace string
}

// Collector deduplicates incoming messages and metadata with two bounded
// LRU caches, joins them once both sides arrive, and fans the joined
// record out into the by-parent/by-address/by-index column families.
type Collector struct {
	partitioner partition.Partitioner
	sinks       map[string]KeyspaceSinks
	defaultKS   string
	filter      KeyspaceFilter

	msgCache *lru.Cache[string, cachedMessage]
	refCache *lru.Cache[string, types.MessageMetadata]

	log *logging.EnhancedLogger
}

// New builds a Collector. sinks must contain an entry for cfg.DefaultKeyspace
// at minimum; filter may be nil, in which case every message resolves to
// cfg.DefaultKeyspace.
func New(cfg Config, p partition.Partitioner, sinks map[string]KeyspaceSinks, filter KeyspaceFilter) (*Collector, error) {
	msgCache, err := lru.New[string, cachedMessage](cfg.MsgCacheSize)
	if err != nil {
		return nil, fmt.Errorf("collector: new msg cache: %w", err)
	}
	refCache, err := lru.New[string, types.MessageMetadata](cfg.MsgRefCacheSize)
	if err != nil {
		return nil, fmt.Errorf("collector: new msg ref cache: %w", err)
	}
	return &Collector{
		partitioner: p,
		sinks:       sinks,
		defaultKS:   cfg.DefaultKeyspace,
		filter:      filter,
		msgCache:    msgCache,
		refCache:    refCache,
		log:         logging.CollectorLogger,
	}, nil
}

// OnMessage handles a Message(id, msg) event. payload is the already-decoded
// payload classification (nil if the message carries no payload the
// fan-out cares about); decoding the raw ledger bytes is the broker feed
// adapter's job, not the collector's.
func (c *Collector) OnMessage(ctx context.Context, messageID string, msg types.Message, payload *types.DecodedPayload) error {
	if _, ok := c.msgCache.Get(messageID); ok {
		return nil
	}

	if meta, ok := c.refCache.Get(messageID); ok {
		if err := c.joinAndFanOut(ctx, messageID, msg, payload, meta); err != nil {
			c.log.WithError(err).Error("join on Message event failed", "message_id", messageID)
		}
	} else {
		ks := c.selectKeyspace(ctx, messageID, msg)
		if err := c.sinks[ks].Messages.InsertMessage(ctx, msg); err != nil {
			c.log.WithError(err).Error("bare message insert failed", "message_id", messageID)
		}
	}

	c.msgCache.Add(messageID, cachedMessage{Msg: msg, Payload: payload})
	return nil
}

// OnMessageReferenced handles a MessageReferenced(metadata) event.
func (c *Collector) OnMessageReferenced(ctx context.Context, meta types.MessageMetadata) error {
	messageID := meta.MessageID

	if _, ok := c.refCache.Get(messageID); ok {
		return nil
	}

	if cached, ok := c.msgCache.Get(messageID); ok {
		if err := c.joinAndFanOut(ctx, messageID, cached.Msg, cached.Payload, meta); err != nil {
			c.log.WithError(err).Error("join on MessageReferenced event failed", "message_id", messageID)
		}
	} else {
		ks := c.defaultKS
		if err := c.sinks[ks].Messages.InsertMetadata(ctx, meta); err != nil {
			c.log.WithError(err).Error("bare metadata insert failed", "message_id", messageID)
		}
	}

	c.refCache.Add(messageID, meta)
	return nil
}

func (c *Collector) selectKeyspace(ctx context.Context, messageID string, msg types.Message) string {
	if c.filter == nil {
		return c.defaultKS
	}
	ks, err := c.filter.SelectKeyspace(ctx, messageID, msg)
	if err != nil || ks == "" {
		return c.defaultKS
	}
	return ks
}

// joinAndFanOut inserts the joined message+metadata tuple and every
// fan-out row it implies, each insert independent and fire-and-forget per
// spec.md's collector concurrency model.
func (c *Collector) joinAndFanOut(ctx context.Context, messageID string, msg types.Message, payload *types.DecodedPayload, meta types.MessageMetadata) error {
	ks := c.selectKeyspace(ctx, messageID, msg)
	sinks := c.sinks[ks]
	estMS := meta.ReferencedBy
	fanOutMS := estMS + 1
	pid := c.partitioner.PID(fanOutMS)

	var g errgroup.Group

	g.Go(func() error { return sinks.Messages.InsertMessage(ctx, msg) })
	g.Go(func() error { return sinks.Messages.InsertMetadata(ctx, meta) })

	for _, parentID := range msg.ParentIDs {
		parentID := parentID
		g.Go(func() error {
			if err := sinks.Parents.InsertRecord(ctx, parentID, pid, types.ParentRecord{
				MS:             estMS,
				ChildMessageID: messageID,
				InclusionState: &meta.InclusionState,
			}); err != nil {
				return fmt.Errorf("parent fan-out for %s: %w", parentID, err)
			}
			return sinks.Hints.InsertHint(ctx, types.HintParent, parentID, estMS, pid)
		})
	}

	if payload != nil {
		switch payload.Kind {
		case types.PayloadIndexation:
			g.Go(func() error {
				if err := sinks.Indexes.InsertRecord(ctx, payload.HashedIndex, pid, types.IndexRecord{
					MS:             estMS,
					MessageID:      messageID,
					InclusionState: &meta.InclusionState,
				}); err != nil {
					return fmt.Errorf("index fan-out for %s: %w", payload.HashedIndex, err)
				}
				return sinks.Hints.InsertHint(ctx, types.HintIndex, payload.HashedIndex, estMS, pid)
			})
		case types.PayloadTransaction:
			g.Go(func() error { return c.fanOutTransaction(ctx, sinks, messageID, estMS, pid, meta, payload) })
		}
	}

	return g.Wait()
}

func (c *Collector) fanOutTransaction(ctx context.Context, sinks KeyspaceSinks, messageID string, estMS types.MilestoneIndex, pid types.PartitionID, meta types.MessageMetadata, payload *types.DecodedPayload) error {
	tx := types.Transaction{TransactionID: payload.TransactionID, Milestone: estMS, Data: payload.Data}

	var g errgroup.Group

	g.Go(func() error {
		if err := sinks.Transactions.InsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("transaction insert: %w", err)
		}
		return sinks.Transactions.InsertTransactionMessage(ctx, tx.TransactionID, messageID, meta.InclusionState)
	})

	for outIdx, out := range payload.Data.Outputs {
		outIdx, out := uint16(outIdx), out
		g.Go(func() error {
			if err := sinks.Outputs.InsertOutput(ctx, types.Output{
				TransactionID: tx.TransactionID,
				OutputIndex:   outIdx,
				Address:       out.Address,
				Amount:        out.Amount,
			}); err != nil {
				return fmt.Errorf("output insert %s[%d]: %w", tx.TransactionID, outIdx, err)
			}
			if err := sinks.Addresses.InsertRecord(ctx, out.Address, pid, types.AddressRecord{
				MS:             estMS,
				TransactionID:  tx.TransactionID,
				OutputIndex:    outIdx,
				InclusionState: &meta.InclusionState,
			}); err != nil {
				return fmt.Errorf("address fan-out %s[%d]: %w", tx.TransactionID, outIdx, err)
			}
			return sinks.Hints.InsertHint(ctx, types.HintAddress, out.Address, estMS, pid)
		})
	}

	for _, in := range payload.Data.Inputs {
		in := in
		if in.Variant != types.InputUtxo {
			continue
		}
		g.Go(func() error {
			state := meta.InclusionState
			return sinks.Outputs.InsertSpendWitness(ctx, in.TransactionID, in.OutputIndex, messageID, &state)
		})
	}

	return g.Wait()
}
