// Package resolve implements the resolution engine (C5, spec.md §4.4):
// admin-only market settlement that cancels every resting order
// (refunding the locked funds) and pays every winning position at 100
// cents per share.
package resolve

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"profecia/internal/apperr"
	"profecia/internal/db"
	"profecia/internal/ledger"
	"profecia/internal/metrics"
	"profecia/internal/model"
)

// RefreshFunc reloads a market's read cache after resolution.
type RefreshFunc func(ctx context.Context, marketID string) error

// PublishFunc broadcasts a resolution event over the websocket hub.
type PublishFunc func(marketID, msgType string, data any)

type Resolver struct {
	store   *db.Store
	ledger  ledger.Ledger
	log     *zap.Logger
	refresh RefreshFunc
	publish PublishFunc
	metrics *metrics.Collector
}

func New(store *db.Store, lg ledger.Ledger, log *zap.Logger, refresh RefreshFunc, publish PublishFunc) *Resolver {
	return &Resolver{store: store, ledger: lg, log: log, refresh: refresh, publish: publish, metrics: metrics.GetCollector()}
}

// Result reports what settlement actually happened, including any
// ledger-call failures — a failed refund or reward does not roll back
// the resolution itself (spec.md §7 partial-failure policy).
type Result struct {
	TxRefs []ledger.TxRef
	Errors []string
}

// Resolve marks marketID resolved to winningSide, cancels (refunding)
// every open order, and pays every winning position.
func (r *Resolver) Resolve(ctx context.Context, marketID string, winningSide model.Side, adminID string) (*Result, error) {
	if !winningSide.Valid() {
		return nil, apperr.New(apperr.Validation, "winningSide must be OptionA or OptionB")
	}

	var (
		canceledOrders []model.BuyOrder
		winners        []model.Position
		market         *model.Market
	)

	err := db.WithSerializableRetry(ctx, r.store, func(tx *sql.Tx) error {
		m, err := db.GetMarketForUpdate(ctx, tx, marketID)
		if err != nil {
			return apperr.DatabaseErr(err)
		}
		if m == nil {
			return apperr.New(apperr.MarketNotFound, "market not found")
		}
		if m.Resolved() {
			return apperr.New(apperr.MarketAlreadyResolved, "market already resolved")
		}
		market = m

		canceledOrders, err = db.DeleteAllOpenForMarket(ctx, tx, marketID)
		if err != nil {
			return apperr.DatabaseErr(err)
		}

		winners, err = db.ListWinningPositions(ctx, tx, marketID, winningSide)
		if err != nil {
			return apperr.DatabaseErr(err)
		}

		if err := db.SetResolvedOption(ctx, tx, marketID, winningSide); err != nil {
			return apperr.DatabaseErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	eventUUID, _ := uuid.Parse(market.EventID)
	marketUUID, _ := uuid.Parse(market.ID)

	winningMint := ledger.Mint(market.YesMint)
	if winningSide == model.SideB {
		winningMint = ledger.Mint(market.NoMint)
	}

	for _, o := range canceledOrders {
		user, err := db.GetUser(ctx, r.store.DB, o.UserID)
		if err != nil || user == nil {
			r.logAndRecord(result, "order", o.ID, fmt.Errorf("user lookup failed for refund: %w", err))
			continue
		}
		ref, lerr := r.ledger.CancelOrder(ctx, ledger.Wallet(user.WalletSecret), eventUUID, marketUUID,
			o.Shares, model.Cents(o.PricePerShare).ToMicro())
		if lerr != nil {
			r.logAndRecord(result, "order", o.ID, lerr)
			r.metrics.RecordLedgerError(string(ledger.InstrFakeCancelOrder))
			continue
		}
		result.TxRefs = append(result.TxRefs, ref)
	}

	for _, pos := range winners {
		user, err := db.GetUser(ctx, r.store.DB, pos.UserID)
		if err != nil || user == nil {
			r.logAndRecord(result, "position", pos.ID, fmt.Errorf("user lookup failed for reward: %w", err))
			continue
		}
		ref, lerr := r.ledger.GetReward(ctx, ledger.Wallet(user.WalletSecret), winningMint, eventUUID, marketUUID, pos.Shares)
		if lerr != nil {
			r.logAndRecord(result, "position", pos.ID, lerr)
			r.metrics.RecordLedgerError(string(ledger.InstrFakeGetReward))
			continue
		}
		result.TxRefs = append(result.TxRefs, ref)
	}

	r.metrics.RecordMarketResolved(string(winningSide.ToDto()))

	r.log.Info("market resolved",
		zap.String("market_id", marketID), zap.String("admin_id", adminID),
		zap.String("winning_side", string(winningSide)),
		zap.Int("canceled_orders", len(canceledOrders)), zap.Int("winning_positions", len(winners)),
		zap.Int("ledger_errors", len(result.Errors)))

	if r.refresh != nil {
		if err := r.refresh(ctx, marketID); err != nil {
			r.log.Error("cache refresh after resolution failed", zap.String("market_id", marketID), zap.Error(err))
		}
	}
	if r.publish != nil {
		r.publish(marketID, "resolved", map[string]any{"winningSide": winningSide.ToDto()})
	}
	return result, nil
}

func (r *Resolver) logAndRecord(result *Result, kind, id string, err error) {
	r.log.Error("ledger settlement call failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", kind, id, err))
}
