package query

import (
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// transactionsListResponse answers /<ks>/transactions/ed25519/<addr>: one
// full transaction per output the address controls, loaded concurrently.
type transactionsListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	State        *string               `json:"state,omitempty"`
}

// HandleTransactionsForAddress serves GET /<ks>/transactions/ed25519/<addr>.
func (d *Deps) HandleTransactionsForAddress(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	addr, err := parseHexID(chi.URLParam(r, "addr"))
	if err != nil {
		writeErr(w, err)
		return
	}
	state, err := decodeState(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	pageSize := pageSizeParam(r, d.DefaultPageSize)
	recs, next, err := pageAddresses(r.Context(), ks, addr, pageSize, state)
	if err != nil {
		writeErr(w, err)
		return
	}

	seen := make(map[string]bool, len(recs))
	var unique []string
	for _, rec := range recs {
		if !seen[rec.TransactionID] {
			seen[rec.TransactionID] = true
			unique = append(unique, rec.TransactionID)
		}
	}

	txs := make([]transactionResponse, len(unique))
	g, gctx := errgroup.WithContext(r.Context())
	for i, txID := range unique {
		i, txID := i, txID
		g.Go(func() error {
			tx, err := ks.Transactions.GetTransaction(gctx, txID)
			if err != nil {
				return err
			}
			txs[i] = shapeTransaction(tx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, transactionsListResponse{Transactions: txs, State: encodeState(next)})
}

// HandleTransactionForMessage serves GET /<ks>/transactions/<mid>. A message
// whose payload was never a transaction has no row in message_transactions,
// which surfaces as NoResults and stands in for the original's explicit
// payload-kind check.
func (d *Deps) HandleTransactionForMessage(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	mid, err := parseHexID(chi.URLParam(r, "mid"))
	if err != nil {
		writeErr(w, err)
		return
	}

	txID, err := ks.Transactions.TransactionForMessage(r.Context(), mid)
	if err != nil {
		writeErr(w, err)
		return
	}
	tx, err := ks.Transactions.GetTransaction(r.Context(), txID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, shapeTransaction(tx))
}

// HandleTransactionIncludedMessage serves GET /<ks>/transactions/<txid>/included-message.
func (d *Deps) HandleTransactionIncludedMessage(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	txID, err := parseHexID(chi.URLParam(r, "txid"))
	if err != nil {
		writeErr(w, err)
		return
	}

	messageID, err := ks.Transactions.IncludedMessageForTransaction(r.Context(), txID)
	if err != nil {
		writeErr(w, err)
		return
	}
	msg, err := ks.Messages.GetMessage(r.Context(), messageID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, messageResponse{
		MessageID: msg.MessageID,
		ParentIDs: msg.ParentIDs,
		Payload:   hex.EncodeToString(msg.Payload),
	})
}
