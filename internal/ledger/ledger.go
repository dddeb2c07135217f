// Package ledger models the settlement-ledger boundary (§4.7): an
// opaque RPC contract shaped after a Solana program — wallets, mints,
// and a per-event program-derived treasury account — that every
// economic operation in Profecia submits a signed instruction to.
package ledger

import (
	"context"
	"crypto/rand"
	"crypto/sha256"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"profecia/internal/model"
)

// Wallet is a base58-encoded custodial wallet pubkey.
type Wallet string

// Mint is a base58-encoded token mint pubkey (a market's YES or NO
// outcome token).
type Mint string

// TxRef is the opaque handle returned for every submitted instruction.
type TxRef string

// Instruction mirrors the wire protocol's variant tag (§6).
type Instruction string

const (
	InstrCreateEmptyEvent Instruction = "CreateEmptyEvent"
	InstrAddOption        Instruction = "AddOption"
	InstrFakeCreateOrder  Instruction = "FakeCreateOrder"
	InstrFakeCancelOrder  Instruction = "FakeCancelOrder"
	InstrFakeGetReward    Instruction = "FakeGetReward"
	InstrFakeAirdrop      Instruction = "FakeAirdrop"
)

// Ledger is the contract every settlement-affecting operation in C4,
// C5, and C8 submits instructions to. Amounts crossing this boundary
// are in micro-cents (cents × 10,000), except Airdrop, which takes
// whole cents.
type Ledger interface {
	CreateCustodialWallet(ctx context.Context) (Wallet, error)
	BalanceOf(ctx context.Context, w Wallet) (model.MicroCents, error)
	Airdrop(ctx context.Context, w Wallet, cents int64) (TxRef, error)
	CreateOrder(ctx context.Context, payer Wallet, event, market uuid.UUID, shares int64, priceMicro model.MicroCents) (TxRef, error)
	CancelOrder(ctx context.Context, user Wallet, event, market uuid.UUID, shares int64, priceMicro model.MicroCents) (TxRef, error)
	GetReward(ctx context.Context, user Wallet, winningMint Mint, event, market uuid.UUID, shares int64) (TxRef, error)
	CreateEmptyEvent(ctx context.Context, event uuid.UUID) (TxRef, error)
	AddOption(ctx context.Context, event, market uuid.UUID, yesMint, noMint Mint) (TxRef, error)
}

// newKeypair mints a fresh 32-byte "keypair", base58-encoded the same
// way original_source's Keypair::to_base58_string() represents one.
func newKeypair() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base58.Encode(buf), nil
}

// derivePDA deterministically derives a program-derived account from a
// seed, mirroring hash("event" ∥ event_uuid, program_id) (§4.7).
func derivePDA(seed string, event uuid.UUID) string {
	h := sha256.Sum256([]byte(seed + event.String()))
	return base58.Encode(h[:])
}

func newTxRef() TxRef {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return TxRef(base58.Encode(buf))
}
