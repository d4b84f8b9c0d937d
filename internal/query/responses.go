package query

import (
	"encoding/hex"

	"permanode/pkg/types"
)

// childID is the bare record shape for /<ks>/messages/<mid>/children.
type childID struct {
	ChildMessageID string `json:"child_message_id"`
}

// childExpanded adds the fields expanded=true asks for.
type childExpanded struct {
	ChildMessageID string                `json:"child_message_id"`
	MS             types.MilestoneIndex  `json:"ms"`
	InclusionState *types.InclusionState `json:"inclusion_state,omitempty"`
}

type pagedChildren struct {
	ChildMessageIDs []childID       `json:"ids,omitempty"`
	Children        []childExpanded `json:"records,omitempty"`
	State           *string         `json:"state,omitempty"`
}

func shapeParents(recs []types.ParentRecord, expanded bool, state *types.StateData) pagedChildren {
	out := pagedChildren{State: encodeState(state)}
	if expanded {
		out.Children = make([]childExpanded, len(recs))
		for i, r := range recs {
			out.Children[i] = childExpanded{ChildMessageID: r.ChildMessageID, MS: r.MS, InclusionState: r.InclusionState}
		}
		return out
	}
	out.ChildMessageIDs = make([]childID, len(recs))
	for i, r := range recs {
		out.ChildMessageIDs[i] = childID{ChildMessageID: r.ChildMessageID}
	}
	return out
}

// indexedID is the bare record shape for /<ks>/messages?index=....
type indexedID struct {
	MessageID string `json:"message_id"`
}

type indexedExpanded struct {
	MessageID      string                `json:"message_id"`
	MS             types.MilestoneIndex  `json:"ms"`
	InclusionState *types.InclusionState `json:"inclusion_state,omitempty"`
}

type pagedMessages struct {
	MessageIDs []indexedID       `json:"ids,omitempty"`
	Messages   []indexedExpanded `json:"records,omitempty"`
	State      *string           `json:"state,omitempty"`
}

func shapeIndexes(recs []types.IndexRecord, expanded bool, state *types.StateData) pagedMessages {
	out := pagedMessages{State: encodeState(state)}
	if expanded {
		out.Messages = make([]indexedExpanded, len(recs))
		for i, r := range recs {
			out.Messages[i] = indexedExpanded{MessageID: r.MessageID, MS: r.MS, InclusionState: r.InclusionState}
		}
		return out
	}
	out.MessageIDs = make([]indexedID, len(recs))
	for i, r := range recs {
		out.MessageIDs[i] = indexedID{MessageID: r.MessageID}
	}
	return out
}

// outputID is the bare record shape for an address's outputs.
type outputID struct {
	TransactionID string `json:"transaction_id"`
	OutputIndex   uint16 `json:"output_index"`
}

type outputExpanded struct {
	TransactionID  string                `json:"transaction_id"`
	OutputIndex    uint16                `json:"output_index"`
	MS             types.MilestoneIndex  `json:"ms"`
	InclusionState *types.InclusionState `json:"inclusion_state,omitempty"`
}

type pagedOutputs struct {
	OutputIDs []outputID       `json:"ids,omitempty"`
	Outputs   []outputExpanded `json:"records,omitempty"`
	State     *string          `json:"state,omitempty"`
}

func shapeAddresses(recs []types.AddressRecord, expanded bool, state *types.StateData) pagedOutputs {
	out := pagedOutputs{State: encodeState(state)}
	if expanded {
		out.Outputs = make([]outputExpanded, len(recs))
		for i, r := range recs {
			out.Outputs[i] = outputExpanded{
				TransactionID: r.TransactionID, OutputIndex: r.OutputIndex,
				MS: r.MS, InclusionState: r.InclusionState,
			}
		}
		return out
	}
	out.OutputIDs = make([]outputID, len(recs))
	for i, r := range recs {
		out.OutputIDs[i] = outputID{TransactionID: r.TransactionID, OutputIndex: r.OutputIndex}
	}
	return out
}

// outputResponse is the shape for /<ks>/outputs/<oid>.
type outputResponse struct {
	TransactionID string `json:"transaction_id"`
	OutputIndex   uint16 `json:"output_index"`
	Address       string `json:"address"`
	Amount        uint64 `json:"amount"`
	IsSpent       bool   `json:"is_spent"`
}

type messageResponse struct {
	MessageID string   `json:"message_id"`
	ParentIDs []string `json:"parent_ids"`
	Payload   string   `json:"payload"`
}

type metadataResponse struct {
	MessageID      string                `json:"message_id"`
	ReferencedBy   types.MilestoneIndex  `json:"referenced_by_milestone"`
	InclusionState types.InclusionState  `json:"inclusion_state"`
}

type transactionResponse struct {
	TransactionID string               `json:"transaction_id"`
	Milestone     types.MilestoneIndex `json:"milestone"`
	Inputs        []inputResponse      `json:"inputs"`
	Outputs       []outputDataResponse `json:"outputs"`
}

type inputResponse struct {
	Variant       string `json:"variant"`
	TransactionID string `json:"transaction_id,omitempty"`
	OutputIndex   uint16 `json:"output_index,omitempty"`
	UnlockBlock   string `json:"unlock_block,omitempty"`
	MilestoneID   string `json:"milestone_id,omitempty"`
}

type outputDataResponse struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

func shapeTransaction(tx types.Transaction) transactionResponse {
	resp := transactionResponse{TransactionID: tx.TransactionID, Milestone: tx.Milestone}
	resp.Inputs = make([]inputResponse, len(tx.Data.Inputs))
	for i, in := range tx.Data.Inputs {
		switch in.Variant {
		case types.InputUtxo:
			resp.Inputs[i] = inputResponse{
				Variant: "utxo", TransactionID: in.TransactionID, OutputIndex: in.OutputIndex,
				UnlockBlock: hex.EncodeToString(in.UnlockBlock),
			}
		case types.InputTreasury:
			resp.Inputs[i] = inputResponse{Variant: "treasury", MilestoneID: in.MilestoneID}
		}
	}
	resp.Outputs = make([]outputDataResponse, len(tx.Data.Outputs))
	for i, o := range tx.Data.Outputs {
		resp.Outputs[i] = outputDataResponse{Address: o.Address, Amount: o.Amount}
	}
	return resp
}

type milestoneResponse struct {
	MS        types.MilestoneIndex `json:"ms"`
	MessageID string                `json:"message_id"`
	Timestamp int64                 `json:"timestamp"`
}

type syncResponse struct {
	Ranges []types.SyncRange `json:"ranges"`
}

type analyticsResponse struct {
	Ranges []types.AnalyticsRange `json:"ranges"`
}

type infoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	IsHealthy bool   `json:"is_healthy"`
}
