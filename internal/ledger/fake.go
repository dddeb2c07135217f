package ledger

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"profecia/internal/apperr"
	"profecia/internal/model"
)

// FakeLedger is an in-process settlement ledger standing in for the
// real RPC-backed one. Balances live in memory, keyed by wallet;
// every event gets its own treasury account derived as a PDA the same
// way the real program would, and every debit against it is asserted
// not to overdraw (§9 Open Question decision 2).
type FakeLedger struct {
	log *zap.Logger

	mu       sync.Mutex
	balances map[Wallet]model.MicroCents
	mints    map[Mint]bool
	treasury map[string]model.MicroCents // event PDA -> balance
}

func NewFake(log *zap.Logger) *FakeLedger {
	return &FakeLedger{
		log:      log,
		balances: make(map[Wallet]model.MicroCents),
		mints:    make(map[Mint]bool),
		treasury: make(map[string]model.MicroCents),
	}
}

func (l *FakeLedger) CreateCustodialWallet(ctx context.Context) (Wallet, error) {
	kp, err := newKeypair()
	if err != nil {
		return "", apperr.LedgerErr(err)
	}
	w := Wallet(kp)
	l.mu.Lock()
	l.balances[w] = 0
	l.mu.Unlock()
	l.log.Debug("ledger: created custodial wallet", zap.String("wallet", string(w)))
	return w, nil
}

func (l *FakeLedger) BalanceOf(ctx context.Context, w Wallet) (model.MicroCents, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[w], nil
}

func (l *FakeLedger) Airdrop(ctx context.Context, w Wallet, cents int64) (TxRef, error) {
	l.mu.Lock()
	l.balances[w] += model.Cents(cents).ToMicro()
	l.mu.Unlock()
	ref := newTxRef()
	l.log.Info("ledger: airdrop",
		zap.String("instruction", string(InstrFakeAirdrop)),
		zap.String("wallet", string(w)),
		zap.Int64("cents", cents),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

// CreateOrder moves the locked funds for a resting/matching order from
// the payer's wallet into the event's treasury.
func (l *FakeLedger) CreateOrder(ctx context.Context, payer Wallet, event, market uuid.UUID, shares int64, priceMicro model.MicroCents) (TxRef, error) {
	amount := model.MicroCents(int64(shares) * int64(priceMicro))
	treasuryKey := derivePDA("event", event)

	l.mu.Lock()
	l.balances[payer] -= amount
	l.treasury[treasuryKey] += amount
	l.mu.Unlock()

	payload := InstructionPayload{EventUUID: event, OptionUUID: market, NumShares: shares, PricePerShareMicro: int64(priceMicro)}
	ref := newTxRef()
	l.log.Info("ledger: create order",
		zap.String("instruction", string(InstrFakeCreateOrder)),
		zap.String("event_uuid", event.String()),
		zap.String("market_uuid", market.String()),
		zap.Int64("shares", shares),
		zap.String("payload", hex.EncodeToString(payload.Encode())),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

// CancelOrder refunds a canceled/consumed resting order's locked funds
// from the event treasury back to the user, asserting the treasury
// does not go negative.
func (l *FakeLedger) CancelOrder(ctx context.Context, user Wallet, event, market uuid.UUID, shares int64, priceMicro model.MicroCents) (TxRef, error) {
	amount := model.MicroCents(int64(shares) * int64(priceMicro))
	treasuryKey := derivePDA("event", event)

	l.mu.Lock()
	newBal := l.treasury[treasuryKey] - amount
	if newBal < 0 {
		l.mu.Unlock()
		l.log.Error("ledger: treasury overdraw on cancel",
			zap.String("event_uuid", event.String()),
			zap.Int64("shortfall_micro_cents", int64(-newBal)))
		return "", apperr.LedgerErr(apperr.New(apperr.Ledger, "treasury would go negative"))
	}
	l.treasury[treasuryKey] = newBal
	l.balances[user] += amount
	l.mu.Unlock()

	payload := InstructionPayload{EventUUID: event, OptionUUID: market, NumShares: shares, PricePerShareMicro: int64(priceMicro)}
	ref := newTxRef()
	l.log.Info("ledger: cancel order",
		zap.String("instruction", string(InstrFakeCancelOrder)),
		zap.String("event_uuid", event.String()),
		zap.String("market_uuid", market.String()),
		zap.Int64("shares", shares),
		zap.String("payload", hex.EncodeToString(payload.Encode())),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

// GetReward pays a winning position out of the event treasury at 100
// cents per share, asserting the treasury does not go negative.
func (l *FakeLedger) GetReward(ctx context.Context, user Wallet, winningMint Mint, event, market uuid.UUID, shares int64) (TxRef, error) {
	amount := model.Cents(shares * 100).ToMicro()
	treasuryKey := derivePDA("event", event)

	l.mu.Lock()
	newBal := l.treasury[treasuryKey] - amount
	if newBal < 0 {
		l.mu.Unlock()
		l.log.Error("ledger: treasury overdraw on reward",
			zap.String("event_uuid", event.String()),
			zap.Int64("shortfall_micro_cents", int64(-newBal)))
		return "", apperr.LedgerErr(apperr.New(apperr.Ledger, "treasury would go negative"))
	}
	l.treasury[treasuryKey] = newBal
	l.balances[user] += amount
	l.mu.Unlock()

	payload := InstructionPayload{EventUUID: event, OptionUUID: market, NumShares: shares, PricePerShareMicro: int64(model.Cents(100).ToMicro())}
	ref := newTxRef()
	l.log.Info("ledger: get reward",
		zap.String("instruction", string(InstrFakeGetReward)),
		zap.String("event_uuid", event.String()),
		zap.String("market_uuid", market.String()),
		zap.String("winning_mint", string(winningMint)),
		zap.Int64("shares", shares),
		zap.String("payload", hex.EncodeToString(payload.Encode())),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

func (l *FakeLedger) CreateEmptyEvent(ctx context.Context, event uuid.UUID) (TxRef, error) {
	l.mu.Lock()
	l.treasury[derivePDA("event", event)] = 0
	l.mu.Unlock()
	ref := newTxRef()
	l.log.Info("ledger: create empty event",
		zap.String("instruction", string(InstrCreateEmptyEvent)),
		zap.String("event_uuid", event.String()),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

func (l *FakeLedger) AddOption(ctx context.Context, event, market uuid.UUID, yesMint, noMint Mint) (TxRef, error) {
	l.mu.Lock()
	l.mints[yesMint] = true
	l.mints[noMint] = true
	l.mu.Unlock()
	ref := newTxRef()
	l.log.Info("ledger: add option",
		zap.String("instruction", string(InstrAddOption)),
		zap.String("event_uuid", event.String()),
		zap.String("market_uuid", market.String()),
		zap.String("yes_mint", string(yesMint)),
		zap.String("no_mint", string(noMint)),
		zap.String("tx_ref", string(ref)))
	return ref, nil
}

// NewMint mints a fresh outcome-token mint pubkey for a market option.
func NewMint() (Mint, error) {
	kp, err := newKeypair()
	if err != nil {
		return "", err
	}
	return Mint(kp), nil
}
