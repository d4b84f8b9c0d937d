package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permanode/pkg/types"
)

func TestInputDataRoundTrip(t *testing.T) {
	utxo := types.InputData{Variant: types.InputUtxo, TransactionID: "tx-1", OutputIndex: 3, UnlockBlock: []byte{0xaa, 0xbb}}
	decoded, err := DecodeInputData(EncodeInputData(utxo))
	require.NoError(t, err)
	assert.Equal(t, utxo, decoded)

	treasury := types.InputData{Variant: types.InputTreasury, MilestoneID: "ms-9"}
	decoded, err = DecodeInputData(EncodeInputData(treasury))
	require.NoError(t, err)
	assert.Equal(t, treasury, decoded)
}

func TestDecodeInputDataUnknownTag(t *testing.T) {
	_, err := DecodeInputData([]byte{0x7f})
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestTxPartRoundTrip(t *testing.T) {
	parts := []types.TxPart{
		{Variant: types.TxPartInput, Input: types.InputData{Variant: types.InputUtxo, TransactionID: "tx-a", OutputIndex: 1}},
		{Variant: types.TxPartOutput, Output: types.OutputData{Address: "addr-1", Amount: 42}},
		{Variant: types.TxPartUnlock, Unlock: types.UnlockData{InputIndex: 2, UnlockBlock: []byte{1, 2, 3}}},
	}

	for _, p := range parts {
		decoded, err := DecodeTxPart(EncodeTxPart(p))
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestDecodeTxPartUnknownTag(t *testing.T) {
	_, err := DecodeTxPart([]byte{0x09})
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestFoldTransactionData(t *testing.T) {
	parts := []types.TxPart{
		{Variant: types.TxPartInput, Input: types.InputData{Variant: types.InputUtxo, TransactionID: "tx-a"}},
		{Variant: types.TxPartOutput, Output: types.OutputData{Address: "addr-1", Amount: 7}},
		{Variant: types.TxPartOutput, Output: types.OutputData{Address: "addr-2", Amount: 9}},
		{Variant: types.TxPartUnlock, Unlock: types.UnlockData{InputIndex: 1}},
	}

	td := FoldTransactionData(parts)
	assert.Len(t, td.Inputs, 1)
	assert.Len(t, td.Outputs, 2)
	assert.Len(t, td.Unlocks, 1)
}

func TestCookieRoundTrip(t *testing.T) {
	pid := types.PartitionID(7)
	ms := types.MilestoneIndex(250)

	cases := []*types.StateData{
		nil,
		{},
		{
			LastPartitionID:    &pid,
			LastMilestoneIndex: &ms,
			PagingState:        []byte{0xde, 0xad, 0xbe, 0xef},
			PartitionIDs: []types.PartitionMark{
				{Milestone: 299, Partition: 1},
				{Milestone: 199, Partition: 2},
			},
		},
	}

	for _, s := range cases {
		hexCookie := EncodeCookieHex(s)
		decoded, err := DecodeCookieHex(hexCookie)
		require.NoError(t, err)

		if s == nil {
			assert.Nil(t, decoded)
			continue
		}
		assert.Equal(t, s, decoded)
	}
}

func TestDecodeCookieHexEmptyStringIsNilNotError(t *testing.T) {
	decoded, err := DecodeCookieHex("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCookieHexInvalidHex(t *testing.T) {
	_, err := DecodeCookieHex("not-hex!!")
	require.Error(t, err)
}

func TestDecodeCookieTruncatedIsError(t *testing.T) {
	raw := EncodeCookie(&types.StateData{PartitionIDs: []types.PartitionMark{{Milestone: 1, Partition: 2}}})
	_, err := DecodeCookie(raw[:len(raw)-1])
	require.Error(t, err)
}

func TestDecodeCookieWrongVersion(t *testing.T) {
	_, err := DecodeCookie([]byte{0xff, 0x00})
	require.Error(t, err)
}

func TestDecodeCookieTrailingBytes(t *testing.T) {
	raw := EncodeCookie(&types.StateData{})
	raw = append(raw, 0x01)
	_, err := DecodeCookie(raw)
	require.Error(t, err)
}
