package query

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"permanode/internal/apperr"
	"permanode/pkg/types"
)

// parseOutputID splits the implementation-chosen "<transaction_id>:<index>"
// output id format. The original ports bee_message's OutputId (32-byte
// transaction id hex-concatenated with a 2-byte big-endian index); since
// transaction ids here are already opaque strings rather than fixed-size
// byte arrays, a delimited pair is the natural equivalent.
func parseOutputID(oid string) (string, uint16, error) {
	txID, idxStr, ok := strings.Cut(oid, ":")
	if !ok {
		return "", 0, apperr.New(apperr.BadParse, "malformed output id: "+oid)
	}
	txID, err := parseHexID(txID)
	if err != nil {
		return "", 0, err
	}
	idx, err := strconv.ParseUint(idxStr, 10, 16)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.BadParse, "malformed output index: "+idxStr, err)
	}
	return txID, uint16(idx), nil
}

// HandleOutput serves GET /<ks>/outputs/<oid>.
func (d *Deps) HandleOutput(w http.ResponseWriter, r *http.Request) {
	ks, _, err := d.keyspaceFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	txID, idx, err := parseOutputID(chi.URLParam(r, "oid"))
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := fetchOutputResponse(r.Context(), ks, txID, idx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, resp)
}

// HandleOutputByTransaction serves GET /<ks>/outputs/<txid>/<idx>, a thin
// wrapper that rebuilds an output id and delegates to the same lookup.
func (d *Deps) HandleOutputByTransaction(w http.ResponseWriter, r *http.Request) {
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
	idx64, err := strconv.ParseUint(chi.URLParam(r, "idx"), 10, 16)
	if err != nil {
		writeErr(w, apperr.Wrap(apperr.BadParse, "malformed output index", err))
		return
	}

	resp, err := fetchOutputResponse(r.Context(), ks, txID, uint16(idx64))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, resp)
}

// fetchOutputResponse loads the output row and runs the spend check: a
// witness with an already-known Included state short-circuits the fan-out;
// otherwise every witness with an unknown state is checked concurrently via
// the referring message's current metadata.
func fetchOutputResponse(ctx context.Context, ks *KeyspaceStore, txID string, idx uint16) (outputResponse, error) {
	out, err := ks.Outputs.GetOutput(ctx, txID, idx)
	if err != nil {
		return outputResponse{}, err
	}

	spent, err := isSpent(ctx, ks, txID, idx)
	if err != nil {
		return outputResponse{}, err
	}

	return outputResponse{
		TransactionID: out.TransactionID,
		OutputIndex:   out.OutputIndex,
		Address:       out.Address,
		Amount:        out.Amount,
		IsSpent:       spent,
	}, nil
}

func isSpent(ctx context.Context, ks *KeyspaceStore, txID string, idx uint16) (bool, error) {
	witnesses, err := ks.Outputs.ListSpendWitnesses(ctx, txID, idx)
	if err != nil {
		return false, err
	}

	var pending []string
	for _, w := range witnesses {
		if w.InclusionState != nil {
			if *w.InclusionState == types.InclusionIncluded {
				return true, nil
			}
			continue
		}
		pending = append(pending, w.MessageID)
	}
	if len(pending) == 0 {
		return false, nil
	}

	results := make([]types.InclusionState, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, mid := range pending {
		i, mid := i, mid
		g.Go(func() error {
			md, err := ks.Messages.GetMetadata(gctx, mid)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					return nil
				}
				return err
			}
			results[i] = md.InclusionState
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, state := range results {
		if state == types.InclusionIncluded {
			return true, nil
		}
	}
	return false, nil
}
