// Package codec implements the binary tagged-union wire format for
// transaction data and the paging engine's resumption cookie.
//
// Every multi-byte integer is big-endian. Column-encoded byte values are
// prefixed by a 4-byte big-endian signed length. Tagged unions carry a
// 1-byte discriminator; an unknown tag fails closed with a typed decode
// error rather than being silently skipped.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"permanode/pkg/types"
)

// ErrUnknownTag is wrapped into apperr.Other by callers that need the
// taxonomy; internal/codec itself stays error-taxonomy agnostic so it can
// be imported by both storage and the query façade without a cycle.
var ErrUnknownTag = errors.New("codec: unknown tag")

// writeBytes writes a 4-byte big-endian signed length prefix followed by
// data.
func writeBytes(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

// readBytes reads a length-prefixed byte value written by writeBytes.
func readBytes(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("codec: read length prefix: %w", err)
	}
	n := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if n < 0 {
		return nil, fmt.Errorf("codec: negative length prefix %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("codec: read %d-byte value: %w", n, err)
		}
	}
	return data, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// EncodeInputData encodes an InputData as its tagged union: tag 0x00 =
// Utxo(transaction id, output index, unlock block), tag 0x01 =
// Treasury(milestone id).
func EncodeInputData(in types.InputData) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(in.Variant))
	switch in.Variant {
	case types.InputUtxo:
		writeString(&buf, in.TransactionID)
		writeUint16(&buf, in.OutputIndex)
		writeBytes(&buf, in.UnlockBlock)
	case types.InputTreasury:
		writeString(&buf, in.MilestoneID)
	}
	return buf.Bytes()
}

// DecodeInputData decodes bytes written by EncodeInputData.
func DecodeInputData(data []byte) (types.InputData, error) {
	r := bytes.NewReader(data)
	tagByte, err := r.ReadByte()
	if err != nil {
		return types.InputData{}, fmt.Errorf("codec: read input tag: %w", err)
	}

	switch types.InputVariant(tagByte) {
	case types.InputUtxo:
		txID, err := readString(r)
		if err != nil {
			return types.InputData{}, err
		}
		idx, err := readUint16(r)
		if err != nil {
			return types.InputData{}, err
		}
		unlockBlock, err := readBytes(r)
		if err != nil {
			return types.InputData{}, err
		}
		return types.InputData{Variant: types.InputUtxo, TransactionID: txID, OutputIndex: idx, UnlockBlock: unlockBlock}, nil
	case types.InputTreasury:
		msID, err := readString(r)
		if err != nil {
			return types.InputData{}, err
		}
		return types.InputData{Variant: types.InputTreasury, MilestoneID: msID}, nil
	default:
		return types.InputData{}, fmt.Errorf("%w: input tag 0x%02x", ErrUnknownTag, tagByte)
	}
}

func encodeOutputData(buf *bytes.Buffer, out types.OutputData) {
	writeString(buf, out.Address)
	writeUint64(buf, out.Amount)
}

func decodeOutputData(r io.Reader) (types.OutputData, error) {
	addr, err := readString(r)
	if err != nil {
		return types.OutputData{}, err
	}
	amount, err := readUint64(r)
	if err != nil {
		return types.OutputData{}, err
	}
	return types.OutputData{Address: addr, Amount: amount}, nil
}

func encodeUnlockData(buf *bytes.Buffer, u types.UnlockData) {
	buf.Write(u.InputTransactionID[:])
	writeUint16(buf, u.InputIndex)
	writeBytes(buf, u.UnlockBlock)
}

func decodeUnlockData(r io.Reader) (types.UnlockData, error) {
	var txID [32]byte
	if _, err := io.ReadFull(r, txID[:]); err != nil {
		return types.UnlockData{}, fmt.Errorf("codec: read unlock input tx id: %w", err)
	}
	idx, err := readUint16(r)
	if err != nil {
		return types.UnlockData{}, err
	}
	block, err := readBytes(r)
	if err != nil {
		return types.UnlockData{}, err
	}
	return types.UnlockData{InputTransactionID: txID, InputIndex: idx, UnlockBlock: block}, nil
}

// EncodeTxPart encodes one row of the transaction_data table: tag 0x00 =
// Input(InputData), 0x01 = Output(Output), 0x02 = Unlock(UnlockData).
func EncodeTxPart(part types.TxPart) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(part.Variant))
	switch part.Variant {
	case types.TxPartInput:
		writeBytes(&buf, EncodeInputData(part.Input))
	case types.TxPartOutput:
		encodeOutputData(&buf, part.Output)
	case types.TxPartUnlock:
		encodeUnlockData(&buf, part.Unlock)
	}
	return buf.Bytes()
}

// DecodeTxPart decodes bytes written by EncodeTxPart.
func DecodeTxPart(data []byte) (types.TxPart, error) {
	r := bytes.NewReader(data)
	tagByte, err := r.ReadByte()
	if err != nil {
		return types.TxPart{}, fmt.Errorf("codec: read tx part tag: %w", err)
	}

	switch types.TxPartVariant(tagByte) {
	case types.TxPartInput:
		raw, err := readBytes(r)
		if err != nil {
			return types.TxPart{}, err
		}
		in, err := DecodeInputData(raw)
		if err != nil {
			return types.TxPart{}, err
		}
		return types.TxPart{Variant: types.TxPartInput, Input: in}, nil
	case types.TxPartOutput:
		out, err := decodeOutputData(r)
		if err != nil {
			return types.TxPart{}, err
		}
		return types.TxPart{Variant: types.TxPartOutput, Output: out}, nil
	case types.TxPartUnlock:
		u, err := decodeUnlockData(r)
		if err != nil {
			return types.TxPart{}, err
		}
		return types.TxPart{Variant: types.TxPartUnlock, Unlock: u}, nil
	default:
		return types.TxPart{}, fmt.Errorf("%w: transaction-data tag 0x%02x", ErrUnknownTag, tagByte)
	}
}

// FoldTransactionData assembles a TransactionData from its decoded rows, in
// the order they were read.
func FoldTransactionData(parts []types.TxPart) types.TransactionData {
	var td types.TransactionData
	for _, p := range parts {
		switch p.Variant {
		case types.TxPartInput:
			td.Inputs = append(td.Inputs, p.Input)
		case types.TxPartOutput:
			td.Outputs = append(td.Outputs, p.Output)
		case types.TxPartUnlock:
			td.Unlocks = append(td.Unlocks, p.Unlock)
		}
	}
	return td
}
