package storage

import (
	"context"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// OutputsTable wraps the `outputs` table, keyed by (transaction_id,
// output_index), plus the `output_spends` table recording candidate
// spenders for get_output's spend-check fan-out.
type OutputsTable struct {
	sess *Session
}

func NewOutputsTable(sess *Session) *OutputsTable {
	return &OutputsTable{sess: sess}
}

// GetOutput loads one output by its owning transaction and index. Spent is
// left false; callers resolve it via ListSpendWitnesses per spec.md's
// spend-check fan-out (a stored unlock with inclusion_state=Included short
// circuits it, otherwise every referring message's current metadata is
// queried concurrently).
func (t *OutputsTable) GetOutput(ctx context.Context, transactionID string, outputIndex uint16) (types.Output, error) {
	const stmt = `SELECT address, amount FROM outputs WHERE transaction_id = ? AND output_index = ?`
	var address string
	var amount uint64
	err := t.sess.cql.Query(stmt, transactionID, outputIndex).WithContext(ctx).Consistency(gocql.One).
		Scan(&address, &amount)
	if err != nil {
		return types.Output{}, classify(err)
	}
	return types.Output{
		TransactionID: transactionID,
		OutputIndex:   outputIndex,
		Address:       address,
		Amount:        amount,
	}, nil
}

// ListSpendWitnesses returns every message known to carry an unlock block
// referencing this output.
func (t *OutputsTable) ListSpendWitnesses(ctx context.Context, transactionID string, outputIndex uint16) ([]types.SpendWitness, error) {
	const stmt = `SELECT message_id, inclusion_state FROM output_spends WHERE transaction_id = ? AND output_index = ?`
	q := t.sess.cql.Query(stmt, transactionID, outputIndex).WithContext(ctx).Consistency(gocql.One)
	iter := q.Iter()

	var witnesses []types.SpendWitness
	var messageID string
	var inclusion *string
	for iter.Scan(&messageID, &inclusion) {
		witnesses = append(witnesses, types.SpendWitness{MessageID: messageID, InclusionState: inclusionPtr(inclusion)})
	}
	if err := iter.Close(); err != nil {
		return nil, apperr.Wrap(apperr.Other, "list spend witnesses failed", err)
	}
	return witnesses, nil
}

// InsertOutput stores a new output.
func (t *OutputsTable) InsertOutput(ctx context.Context, out types.Output) error {
	const stmt = `INSERT INTO outputs (transaction_id, output_index, address, amount) VALUES (?, ?, ?, ?)`
	return Insert(ctx, t.sess, stmt, out.TransactionID, out.OutputIndex, out.Address, out.Amount)
}

// InsertSpendWitness records that messageID carries an unlock block
// referencing (transactionID, outputIndex), with its inclusion state at
// insert time if already known.
func (t *OutputsTable) InsertSpendWitness(ctx context.Context, transactionID string, outputIndex uint16, messageID string, state *types.InclusionState) error {
	const stmt = `INSERT INTO output_spends (transaction_id, output_index, message_id, inclusion_state) VALUES (?, ?, ?, ?)`
	var stateArg interface{}
	if state != nil {
		stateArg = string(*state)
	}
	return Insert(ctx, t.sess, stmt, transactionID, outputIndex, messageID, stateArg)
}
