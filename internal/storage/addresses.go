package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/pkg/types"
)

// AddressesTable wraps the `addresses` table, partition key
// (ed25519_address, pid), clustered ms DESC.
type AddressesTable struct {
	sess *Session
}

func NewAddressesTable(sess *Session) *AddressesTable {
	return &AddressesTable{sess: sess}
}

func (t *AddressesTable) ForKey(address string) *addressFetcher {
	return &addressFetcher{table: t, key: address}
}

type addressFetcher struct {
	table *AddressesTable
	key   string
}

// Fetch satisfies paging.Fetcher[types.AddressRecord].
func (f *addressFetcher) Fetch(ctx context.Context, pid types.PartitionID, latestMilestone types.MilestoneIndex, pagingState []byte, limit int) ([]types.AddressRecord, []byte, error) {
	const stmt = `SELECT milestone, transaction_id, output_index, inclusion_state FROM addresses WHERE ed25519_address = ? AND partition = ? AND milestone <= ?`
	args := []interface{}{f.key, uint16(pid), uint32(latestMilestone)}
	return SelectPage(ctx, f.table.sess, stmt, args, pagingState, limit, scanAddressRows)
}

// InsertRecord stores one address fan-out row under the given partition.
func (t *AddressesTable) InsertRecord(ctx context.Context, address string, pid types.PartitionID, rec types.AddressRecord) error {
	const stmt = `INSERT INTO addresses (ed25519_address, partition, milestone, transaction_id, output_index, inclusion_state) VALUES (?, ?, ?, ?, ?, ?)`
	var inclusion interface{}
	if rec.InclusionState != nil {
		inclusion = string(*rec.InclusionState)
	}
	return Insert(ctx, t.sess, stmt, address, uint16(pid), uint32(rec.MS), rec.TransactionID, rec.OutputIndex, inclusion)
}

func scanAddressRows(iter *gocql.Iter) ([]types.AddressRecord, error) {
	var rows []types.AddressRecord
	var ms uint32
	var txID string
	var outIdx uint16
	var inclusion *string
	for iter.Scan(&ms, &txID, &outIdx, &inclusion) {
		rows = append(rows, types.AddressRecord{
			MS:             types.MilestoneIndex(ms),
			TransactionID:  txID,
			OutputIndex:    outIdx,
			InclusionState: inclusionPtr(inclusion),
		})
	}
	return rows, nil
}
