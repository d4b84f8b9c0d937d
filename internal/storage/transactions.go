package storage

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/internal/codec"
	"permanode/pkg/types"
)

// TransactionsTable wraps the `transactions` table (milestone + decoded
// essence) and the `transaction_data` table that backs it: one row per
// transaction part, tagged with TxPartVariant, folded on read.
type TransactionsTable struct {
	sess *Session
}

func NewTransactionsTable(sess *Session) *TransactionsTable {
	return &TransactionsTable{sess: sess}
}

// GetTransaction loads a transaction's milestone and folds its essence from
// the transaction_data rows.
func (t *TransactionsTable) GetTransaction(ctx context.Context, transactionID string) (types.Transaction, error) {
	const msStmt = `SELECT milestone FROM transactions WHERE transaction_id = ?`
	var ms uint32
	if err := t.sess.cql.Query(msStmt, transactionID).WithContext(ctx).Consistency(gocql.One).Scan(&ms); err != nil {
		return types.Transaction{}, classify(err)
	}

	parts, err := t.loadParts(ctx, transactionID)
	if err != nil {
		return types.Transaction{}, err
	}

	return types.Transaction{
		TransactionID: transactionID,
		Milestone:     types.MilestoneIndex(ms),
		Data:          codec.FoldTransactionData(parts),
	}, nil
}

func (t *TransactionsTable) loadParts(ctx context.Context, transactionID string) ([]types.TxPart, error) {
	const stmt = `SELECT part FROM transaction_data WHERE transaction_id = ?`
	q := t.sess.cql.Query(stmt, transactionID).WithContext(ctx).Consistency(gocql.One)
	iter := q.Iter()

	var parts []types.TxPart
	var raw []byte
	for iter.Scan(&raw) {
		part, err := codec.DecodeTxPart(raw)
		if err != nil {
			_ = iter.Close()
			return nil, apperr.Wrap(apperr.Other, "decode transaction part failed", err)
		}
		parts = append(parts, part)
	}
	if err := iter.Close(); err != nil {
		return nil, classify(err)
	}
	if len(parts) == 0 {
		return nil, apperr.New(apperr.NoResults, "no transaction parts for id")
	}
	return parts, nil
}

// InsertTransaction stores a transaction's milestone and explodes its
// essence into transaction_data rows.
func (t *TransactionsTable) InsertTransaction(ctx context.Context, tx types.Transaction) error {
	const msStmt = `INSERT INTO transactions (transaction_id, milestone) VALUES (?, ?)`
	if err := Insert(ctx, t.sess, msStmt, tx.TransactionID, uint32(tx.Milestone)); err != nil {
		return fmt.Errorf("storage: insert transaction: %w", err)
	}

	const partStmt = `INSERT INTO transaction_data (transaction_id, part) VALUES (?, ?)`
	for _, in := range tx.Data.Inputs {
		part := types.TxPart{Variant: types.TxPartInput, Input: in}
		if err := Insert(ctx, t.sess, partStmt, tx.TransactionID, codec.EncodeTxPart(part)); err != nil {
			return fmt.Errorf("storage: insert transaction input: %w", err)
		}
	}
	for _, out := range tx.Data.Outputs {
		part := types.TxPart{Variant: types.TxPartOutput, Output: out}
		if err := Insert(ctx, t.sess, partStmt, tx.TransactionID, codec.EncodeTxPart(part)); err != nil {
			return fmt.Errorf("storage: insert transaction output: %w", err)
		}
	}
	for _, u := range tx.Data.Unlocks {
		part := types.TxPart{Variant: types.TxPartUnlock, Unlock: u}
		if err := Insert(ctx, t.sess, partStmt, tx.TransactionID, codec.EncodeTxPart(part)); err != nil {
			return fmt.Errorf("storage: insert transaction unlock: %w", err)
		}
	}
	return nil
}

// MessageForTransaction resolves a message carrying this transaction, at any
// inclusion state. No query handler calls it; get_transaction_for_message
// goes the other way, through TransactionForMessage.
func (t *TransactionsTable) MessageForTransaction(ctx context.Context, transactionID string) (string, error) {
	const stmt = `SELECT message_id FROM transaction_messages WHERE transaction_id = ?`
	var messageID string
	err := t.sess.cql.Query(stmt, transactionID).WithContext(ctx).Consistency(gocql.One).Scan(&messageID)
	if err != nil {
		return "", classify(err)
	}
	return messageID, nil
}

// IncludedMessageForTransaction resolves the confirming (Included) message
// for a transaction, for get_transaction_included_message.
func (t *TransactionsTable) IncludedMessageForTransaction(ctx context.Context, transactionID string) (string, error) {
	const stmt = `SELECT message_id FROM transaction_messages WHERE transaction_id = ? AND inclusion_state = ?`
	var messageID string
	err := t.sess.cql.Query(stmt, transactionID, string(types.InclusionIncluded)).WithContext(ctx).Consistency(gocql.One).Scan(&messageID)
	if err != nil {
		return "", classify(err)
	}
	return messageID, nil
}

// InsertTransactionMessage records which message carried a transaction, and
// at what inclusion state, for MessageForTransaction/IncludedMessageForTransaction.
// It also writes the message_transactions reverse index used by
// TransactionForMessage.
func (t *TransactionsTable) InsertTransactionMessage(ctx context.Context, transactionID, messageID string, state types.InclusionState) error {
	const stmt = `INSERT INTO transaction_messages (transaction_id, message_id, inclusion_state) VALUES (?, ?, ?)`
	if err := Insert(ctx, t.sess, stmt, transactionID, messageID, string(state)); err != nil {
		return err
	}
	const reverseStmt = `INSERT INTO message_transactions (message_id, transaction_id) VALUES (?, ?)`
	return Insert(ctx, t.sess, reverseStmt, messageID, transactionID)
}

// TransactionForMessage resolves the transaction id a message carries, for
// get_transaction_for_message. NoResults if the message's payload was never
// a transaction.
func (t *TransactionsTable) TransactionForMessage(ctx context.Context, messageID string) (string, error) {
	const stmt = `SELECT transaction_id FROM message_transactions WHERE message_id = ?`
	var transactionID string
	err := t.sess.cql.Query(stmt, messageID).WithContext(ctx).Consistency(gocql.One).Scan(&transactionID)
	if err != nil {
		return "", classify(err)
	}
	return transactionID, nil
}
