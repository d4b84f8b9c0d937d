// Package collector implements the ingestion pipeline (C5): LRU-backed
// message/metadata dedup and join, followed by fan-out inserts into the
// per-purpose column families the query façade reads from.
package collector

import (
	"context"

	"permanode/pkg/types"
)

// MessageSink persists message bodies and their confirmation metadata.
type MessageSink interface {
	InsertMessage(ctx context.Context, msg types.Message) error
	InsertMetadata(ctx context.Context, md types.MessageMetadata) error
}

// ParentSink persists by-parent fan-out rows.
type ParentSink interface {
	InsertRecord(ctx context.Context, parentMessageID string, pid types.PartitionID, rec types.ParentRecord) error
}

// AddressSink persists by-address fan-out rows.
type AddressSink interface {
	InsertRecord(ctx context.Context, address string, pid types.PartitionID, rec types.AddressRecord) error
}

// IndexSink persists by-indexation-tag fan-out rows.
type IndexSink interface {
	InsertRecord(ctx context.Context, hashedIndex string, pid types.PartitionID, rec types.IndexRecord) error
}

// HintSink persists the hint table rows that let the paging engine find
// which partitions hold a logical key's records.
type HintSink interface {
	InsertHint(ctx context.Context, variant types.HintVariant, key string, ms types.MilestoneIndex, pid types.PartitionID) error
}

// TransactionSink persists a transaction's essence and its confirming
// message reference.
type TransactionSink interface {
	InsertTransaction(ctx context.Context, tx types.Transaction) error
	InsertTransactionMessage(ctx context.Context, transactionID, messageID string, state types.InclusionState) error
}

// OutputSink persists transaction outputs and the spend witnesses get_output
// fans out over.
type OutputSink interface {
	InsertOutput(ctx context.Context, out types.Output) error
	InsertSpendWitness(ctx context.Context, transactionID string, outputIndex uint16, messageID string, state *types.InclusionState) error
}

// KeyspaceSinks bundles every storage dependency the collector writes to for
// one keyspace.
type KeyspaceSinks struct {
	Messages     MessageSink
	Parents      ParentSink
	Addresses    AddressSink
	Indexes      IndexSink
	Hints        HintSink
	Transactions TransactionSink
	Outputs      OutputSink
}

// KeyspaceFilter picks which keyspace an incoming message belongs to. The
// default collector has none and always uses DefaultKeyspace.
type KeyspaceFilter interface {
	SelectKeyspace(ctx context.Context, messageID string, msg types.Message) (string, error)
}
