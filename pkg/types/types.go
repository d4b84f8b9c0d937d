// Package types holds the data-model records shared across the permanode
// storage, partitioning, paging, and query layers.
package types

// MilestoneIndex is the unsigned 32-bit monotonic counter naming a point in
// the ledger's global timeline.
type MilestoneIndex uint32

// PartitionID groups chunk_size consecutive milestones into one physical
// row of the wide-column store.
type PartitionID uint16

// HintVariant distinguishes the three lookup keys a hint can index.
type HintVariant string

const (
	HintParent  HintVariant = "parent"
	HintAddress HintVariant = "address"
	HintIndex   HintVariant = "index"
)

// InclusionState is the tri-valued confirmation outcome recorded against a
// transaction once its referencing milestone lands.
type InclusionState string

const (
	InclusionIncluded     InclusionState = "included"
	InclusionConflicting  InclusionState = "conflicting"
	InclusionNoTransaction InclusionState = "no_transaction"
)

// Hint maps a logical key to the set of (ms, pid) partitions holding its
// records. Rows of the `hints` table decode into this shape.
type Hint struct {
	HintString string
	Variant    HintVariant
	Milestone  MilestoneIndex
	Partition  PartitionID
}

// ParentRecord is keyed by parent_message_id; one row per child that
// references that parent. It satisfies paging.Record so the paging engine
// can interleave it directly.
type ParentRecord struct {
	MS             MilestoneIndex
	ChildMessageID string
	InclusionState *InclusionState
}

func (r ParentRecord) Milestone() MilestoneIndex { return r.MS }

// AddressRecord is keyed by ed25519_address; one row per output that
// address controls.
type AddressRecord struct {
	MS             MilestoneIndex
	TransactionID  string
	OutputIndex    uint16
	InclusionState *InclusionState
}

func (r AddressRecord) Milestone() MilestoneIndex { return r.MS }

// IndexRecord is keyed by indexation_tag; one row per message carrying
// that tag.
type IndexRecord struct {
	MS             MilestoneIndex
	MessageID      string
	InclusionState *InclusionState
}

func (r IndexRecord) Milestone() MilestoneIndex { return r.MS }

// Message is the decoded body of a ledger message, as stored in the
// `messages` table.
type Message struct {
	MessageID string
	ParentIDs []string
	Payload   []byte
}

// MessageMetadata is the decoded row of a message's confirmation metadata.
type MessageMetadata struct {
	MessageID      string
	ReferencedBy   MilestoneIndex
	InclusionState InclusionState
}

// PayloadKind distinguishes the message payload shapes the collector's
// fan-out cares about. Payload decoding itself is an external collaborator's
// concern (the ledger's binary codec, out of scope here); the collector only
// consumes the already-decoded result.
type PayloadKind byte

const (
	PayloadNone PayloadKind = iota
	PayloadIndexation
	PayloadTransaction
)

// DecodedPayload is the pre-decoded form of a message's payload, as handed
// to the collector by the broker feed adapter.
type DecodedPayload struct {
	Kind PayloadKind

	// PayloadIndexation
	HashedIndex string

	// PayloadTransaction
	TransactionID string
	Data          TransactionData
}

// InputVariant distinguishes the two tagged-union shapes an input can take.
type InputVariant byte

const (
	InputUtxo      InputVariant = 0x00
	InputTreasury  InputVariant = 0x01
)

// InputData is the decoded form of a transaction input. Only the field
// matching Variant is populated.
type InputData struct {
	Variant InputVariant

	// InputUtxo
	TransactionID string
	OutputIndex   uint16
	UnlockBlock   []byte

	// InputTreasury
	MilestoneID string
}

// TxPartVariant distinguishes the three tagged-union shapes a transaction
// essence part can take on the wire.
type TxPartVariant byte

const (
	TxPartInput  TxPartVariant = 0x00
	TxPartOutput TxPartVariant = 0x01
	TxPartUnlock TxPartVariant = 0x02
)

// UnlockData is one unlock block attached to a transaction.
type UnlockData struct {
	InputTransactionID [32]byte
	InputIndex         uint16
	UnlockBlock        []byte
}

// TransactionData is the decoded essence of a transaction: its ordered
// inputs, outputs, and unlock blocks, each wire-tagged with TxPartVariant.
type TransactionData struct {
	Inputs  []InputData
	Outputs []OutputData
	Unlocks []UnlockData
}

// TxPart is one row of the transaction_data table: a single input, output,
// or unlock block, wire-tagged with TxPartVariant. Storage holds one row
// per part; internal/codec (de)serializes them individually, and callers
// fold a transaction's rows into a TransactionData.
type TxPart struct {
	Variant TxPartVariant
	Input   InputData
	Output  OutputData
	Unlock  UnlockData
}

// OutputData is one output within a transaction's essence, prior to being
// projected into an address-keyed Output row.
type OutputData struct {
	Address string
	Amount  uint64
}

// Transaction is the decoded row of the `transactions` table.
type Transaction struct {
	TransactionID string
	Milestone     MilestoneIndex
	Data          TransactionData
}

// Output is one transaction output, as referenced by an AddressRecord or
// fetched directly by output id. Spent is computed by the query façade's
// get_output handler, not persisted.
type Output struct {
	TransactionID string
	OutputIndex   uint16
	Address       string
	Amount        uint64
	Spent         bool
}

// SpendWitness is one candidate spender of an output: a message that carries
// an unlock block referencing it, with that message's inclusion state if
// already known at insert time. A nil InclusionState means the spend-check
// fan-out must query the message's current metadata.
type SpendWitness struct {
	MessageID      string
	InclusionState *InclusionState
}

// MilestoneRecord is the decoded row of the `milestones` table.
type MilestoneRecord struct {
	Milestone MilestoneIndex
	MessageID string
	Timestamp int64
}

// SyncRange is one contiguous span of milestone indexes tracked by the
// syncer's sync_data list.
type SyncRange struct {
	Start uint32
	End   uint32
	Gap   bool
}

// AnalyticsRange is one bucket of the analytics fetch's chunked response.
type AnalyticsRange struct {
	Start uint32
	End   uint32
	Count uint64
}
