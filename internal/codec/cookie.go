package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"permanode/pkg/types"
)

// cookieVersion guards the binary shape; bumped whenever a field is added
// or removed. Decoders reject any other version rather than guess at a
// partial layout.
const cookieVersion = 1

const (
	flagHasLastPartitionID    = 1 << 0
	flagHasLastMilestoneIndex = 1 << 1
	flagHasPagingState        = 1 << 2
)

// EncodeCookie serializes a StateData into its opaque binary form.
func EncodeCookie(s *types.StateData) []byte {
	var buf bytes.Buffer
	buf.WriteByte(cookieVersion)

	var flags byte
	if s.LastPartitionID != nil {
		flags |= flagHasLastPartitionID
	}
	if s.LastMilestoneIndex != nil {
		flags |= flagHasLastMilestoneIndex
	}
	if s.PagingState != nil {
		flags |= flagHasPagingState
	}
	buf.WriteByte(flags)

	if s.LastPartitionID != nil {
		writeUint16(&buf, uint16(*s.LastPartitionID))
	}
	if s.LastMilestoneIndex != nil {
		writeUint32(&buf, uint32(*s.LastMilestoneIndex))
	}
	if s.PagingState != nil {
		writeBytes(&buf, s.PagingState)
	}

	writeUint32(&buf, uint32(len(s.PartitionIDs)))
	for _, mark := range s.PartitionIDs {
		writeUint32(&buf, uint32(mark.Milestone))
		writeUint16(&buf, uint16(mark.Partition))
	}

	return buf.Bytes()
}

// DecodeCookie parses bytes written by EncodeCookie. Any malformed input —
// truncated buffer, unsupported version — is reported as a plain error;
// callers in the query façade collapse this unconditionally to
// apperr.InvalidState, never apperr.Other.
func DecodeCookie(data []byte) (*types.StateData, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: read cookie version: %w", err)
	}
	if version != cookieVersion {
		return nil, fmt.Errorf("codec: unsupported cookie version %d", version)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: read cookie flags: %w", err)
	}

	s := &types.StateData{}

	if flags&flagHasLastPartitionID != 0 {
		v, err := readUint16(r)
		if err != nil {
			return nil, fmt.Errorf("codec: read last_partition_id: %w", err)
		}
		pid := types.PartitionID(v)
		s.LastPartitionID = &pid
	}
	if flags&flagHasLastMilestoneIndex != 0 {
		v, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("codec: read last_milestone_index: %w", err)
		}
		ms := types.MilestoneIndex(v)
		s.LastMilestoneIndex = &ms
	}
	if flags&flagHasPagingState != 0 {
		v, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("codec: read paging_state: %w", err)
		}
		s.PagingState = v
	}

	count, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read partition_ids count: %w", err)
	}
	if count > 0 {
		s.PartitionIDs = make([]types.PartitionMark, 0, count)
	}
	for i := uint32(0); i < count; i++ {
		ms, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("codec: read partition_ids[%d].ms: %w", i, err)
		}
		pid, err := readUint16(r)
		if err != nil {
			return nil, fmt.Errorf("codec: read partition_ids[%d].pid: %w", i, err)
		}
		s.PartitionIDs = append(s.PartitionIDs, types.PartitionMark{
			Milestone: types.MilestoneIndex(ms),
			Partition: types.PartitionID(pid),
		})
	}

	if extra, _ := io.ReadAll(r); len(extra) > 0 {
		return nil, fmt.Errorf("codec: %d trailing bytes after cookie", len(extra))
	}

	return s, nil
}

// EncodeCookieHex serializes and hex-wraps a StateData for use as an HTTP
// query parameter. A nil StateData encodes to the empty string.
func EncodeCookieHex(s *types.StateData) string {
	if s == nil {
		return ""
	}
	return hex.EncodeToString(EncodeCookie(s))
}

// DecodeCookieHex unwraps and parses a cookie produced by EncodeCookieHex.
// An empty string decodes to a nil StateData representing a fresh paging
// session, not an error.
func DecodeCookieHex(s string) (*types.StateData, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid hex cookie: %w", err)
	}
	return DecodeCookie(raw)
}
