// Package query implements the query façade (C4): chi-routed HTTP handlers
// that validate a keyspace, decode the path/query parameters, drive the
// paging engine or a direct storage lookup, and shape the JSON response.
package query

import (
	"context"

	"permanode/internal/paging"
	"permanode/internal/partition"
	"permanode/internal/storage"
	"permanode/pkg/types"
)

// KeyspaceStore bundles the typed table wrappers bound to one logical
// keyspace's Session, plus the shared partition layout every paging engine
// built against it uses.
type KeyspaceStore struct {
	Session *storage.Session

	Messages     *storage.MessagesTable
	Transactions *storage.TransactionsTable
	Outputs      *storage.OutputsTable
	Milestones   *storage.MilestonesTable
	Sync         *storage.SyncTable
	Analytics    *storage.AnalyticsTable
	Parents      *storage.ParentsTable
	Addresses    *storage.AddressesTable
	Indexes      *storage.IndexesTable

	ParentHints  storage.ParentHints
	AddressHints storage.AddressHints
	IndexHints   storage.IndexHints

	Partitioner partition.Partitioner
	FetchSize   int
}

// NewKeyspaceStore wires every typed table against a single connected
// Session. Partitioner and FetchSize are immutable after startup per
// spec.md §5, so they're held here rather than threaded through every call.
func NewKeyspaceStore(sess *storage.Session, p partition.Partitioner, fetchSize int) *KeyspaceStore {
	return &KeyspaceStore{
		Session:      sess,
		Messages:     storage.NewMessagesTable(sess),
		Transactions: storage.NewTransactionsTable(sess),
		Outputs:      storage.NewOutputsTable(sess),
		Milestones:   storage.NewMilestonesTable(sess),
		Sync:         storage.NewSyncTable(sess),
		Analytics:    storage.NewAnalyticsTable(sess),
		Parents:      storage.NewParentsTable(sess),
		Addresses:    storage.NewAddressesTable(sess),
		Indexes:      storage.NewIndexesTable(sess),
		ParentHints:  storage.NewParentHints(sess),
		AddressHints: storage.NewAddressHints(sess),
		IndexHints:   storage.NewIndexHints(sess),
		Partitioner:  p,
		FetchSize:    fetchSize,
	}
}

// pageParents runs the paging engine for one parent message id's children,
// binding a fresh engine's Fetcher to that key for the duration of the call.
func pageParents(ctx context.Context, ks *KeyspaceStore, parentMessageID string, pageSize int, state *types.StateData) ([]types.ParentRecord, *types.StateData, error) {
	engine := &paging.Engine[types.ParentRecord]{
		Partitioner: ks.Partitioner,
		Hints:       ks.ParentHints,
		Fetcher:     ks.Parents.ForKey(parentMessageID),
		FetchSize:   ks.FetchSize,
	}
	return engine.Page(ctx, parentMessageID, pageSize, state)
}

// pageAddresses runs the paging engine for one address's outputs.
func pageAddresses(ctx context.Context, ks *KeyspaceStore, address string, pageSize int, state *types.StateData) ([]types.AddressRecord, *types.StateData, error) {
	engine := &paging.Engine[types.AddressRecord]{
		Partitioner: ks.Partitioner,
		Hints:       ks.AddressHints,
		Fetcher:     ks.Addresses.ForKey(address),
		FetchSize:   ks.FetchSize,
	}
	return engine.Page(ctx, address, pageSize, state)
}

// pageIndexes runs the paging engine for one indexation tag's messages.
func pageIndexes(ctx context.Context, ks *KeyspaceStore, hashedIndex string, pageSize int, state *types.StateData) ([]types.IndexRecord, *types.StateData, error) {
	engine := &paging.Engine[types.IndexRecord]{
		Partitioner: ks.Partitioner,
		Hints:       ks.IndexHints,
		Fetcher:     ks.Indexes.ForKey(hashedIndex),
		FetchSize:   ks.FetchSize,
	}
	return engine.Page(ctx, hashedIndex, pageSize, state)
}
