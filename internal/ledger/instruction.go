package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// InstructionPayload is the fixed-layout argument struct every
// settlement instruction carries (spec.md §4.7/§8): event_uuid,
// option_uuid, num_shares, price_per_share_micro. Encode/Decode mirror
// the Anchor program's borsh-style fixed-width little-endian layout
// (original_source's blockchain_program FakeCreateOrderArgs and
// siblings), not JSON — the real program only ever sees bytes.
type InstructionPayload struct {
	EventUUID          uuid.UUID
	OptionUUID         uuid.UUID
	NumShares          int64
	PricePerShareMicro int64
}

// payloadLen is 16 (event uuid) + 16 (option uuid) + 8 (shares) + 8
// (price) bytes.
const payloadLen = 16 + 16 + 8 + 8

// Encode serializes p into its fixed-width wire form.
func (p InstructionPayload) Encode() []byte {
	buf := make([]byte, payloadLen)
	copy(buf[0:16], p.EventUUID[:])
	copy(buf[16:32], p.OptionUUID[:])
	binary.LittleEndian.PutUint64(buf[32:40], uint64(p.NumShares))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(p.PricePerShareMicro))
	return buf
}

// DecodeInstructionPayload deserializes the fixed-width wire form
// produced by Encode. Round-trip law (spec.md §8): Decode(Encode(p))
// re-encodes to a byte-identical wire form.
func DecodeInstructionPayload(buf []byte) (InstructionPayload, error) {
	if len(buf) != payloadLen {
		return InstructionPayload{}, fmt.Errorf("ledger: instruction payload must be %d bytes, got %d", payloadLen, len(buf))
	}
	var p InstructionPayload
	copy(p.EventUUID[:], buf[0:16])
	copy(p.OptionUUID[:], buf[16:32])
	p.NumShares = int64(binary.LittleEndian.Uint64(buf[32:40]))
	p.PricePerShareMicro = int64(binary.LittleEndian.Uint64(buf[40:48]))
	return p, nil
}

// EqualEncoded reports whether two encoded payloads are byte-identical.
func EqualEncoded(a, b []byte) bool {
	return bytes.Equal(a, b)
}
