package ledger

import (
	"testing"

	"github.com/google/uuid"
)

func TestInstructionPayloadRoundTrip(t *testing.T) {
	p := InstructionPayload{
		EventUUID:          uuid.New(),
		OptionUUID:         uuid.New(),
		NumShares:          10,
		PricePerShareMicro: 600000,
	}

	encoded := p.Encode()
	decoded, err := DecodeInstructionPayload(encoded)
	if err != nil {
		t.Fatalf("DecodeInstructionPayload: %v", err)
	}
	if decoded != p {
		t.Fatalf("decoded payload %+v does not match original %+v", decoded, p)
	}

	reEncoded := decoded.Encode()
	if !EqualEncoded(encoded, reEncoded) {
		t.Fatalf("re-encoded payload is not byte-identical to the original")
	}
}

func TestDecodeInstructionPayloadRejectsWrongLength(t *testing.T) {
	if _, err := DecodeInstructionPayload([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error decoding a short buffer")
	}
}
