package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"profecia/internal/model"
)

func TestFakeLedger_AirdropAndBalance(t *testing.T) {
	l := NewFake(zap.NewNop())
	ctx := context.Background()

	w, err := l.CreateCustodialWallet(ctx)
	if err != nil {
		t.Fatalf("CreateCustodialWallet: %v", err)
	}
	if _, err := l.Airdrop(ctx, w, 1000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	bal, err := l.BalanceOf(ctx, w)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal != model.Cents(1000).ToMicro() {
		t.Fatalf("expected balance 1000 cents in micro, got %d", bal)
	}
}

func TestFakeLedger_CreateOrderMovesFundsToTreasury(t *testing.T) {
	l := NewFake(zap.NewNop())
	ctx := context.Background()

	payer, _ := l.CreateCustodialWallet(ctx)
	l.Airdrop(ctx, payer, 1000)

	event := uuid.New()
	market := uuid.New()
	if _, err := l.CreateOrder(ctx, payer, event, market, 10, model.Cents(60).ToMicro()); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	bal, _ := l.BalanceOf(ctx, payer)
	if bal != model.Cents(1000-600).ToMicro() {
		t.Fatalf("expected payer balance reduced by 600 cents, got %d", bal)
	}
}

func TestFakeLedger_CancelOrderRefundsFromTreasury(t *testing.T) {
	l := NewFake(zap.NewNop())
	ctx := context.Background()

	payer, _ := l.CreateCustodialWallet(ctx)
	l.Airdrop(ctx, payer, 1000)

	event := uuid.New()
	market := uuid.New()
	l.CreateOrder(ctx, payer, event, market, 10, model.Cents(60).ToMicro())

	if _, err := l.CancelOrder(ctx, payer, event, market, 10, model.Cents(60).ToMicro()); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	bal, _ := l.BalanceOf(ctx, payer)
	if bal != model.Cents(1000).ToMicro() {
		t.Fatalf("expected full refund, got balance %d", bal)
	}
}

func TestFakeLedger_TreasuryOverdrawRejected(t *testing.T) {
	l := NewFake(zap.NewNop())
	ctx := context.Background()

	user, _ := l.CreateCustodialWallet(ctx)
	event := uuid.New()
	market := uuid.New()

	// No CreateOrder ever funded this event's treasury, so any refund
	// or reward against it must be rejected rather than go negative.
	if _, err := l.CancelOrder(ctx, user, event, market, 10, model.Cents(60).ToMicro()); err == nil {
		t.Fatalf("expected treasury overdraw error on cancel")
	}

	mint, _ := NewMint()
	if _, err := l.GetReward(ctx, user, mint, event, market, 10); err == nil {
		t.Fatalf("expected treasury overdraw error on reward")
	}
}
