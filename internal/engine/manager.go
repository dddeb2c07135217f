// Package engine is the matching engine (C4, spec.md §4.3): FIFO
// matching at the exact complementary price inside a single Postgres
// serializable transaction, retried on 40001. The in-memory BookCache
// it also maintains is a best-bid read cache only — never the
// matching authority (§9 Open Question decision 1).
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"profecia/internal/apperr"
	"profecia/internal/db"
	"profecia/internal/ledger"
	"profecia/internal/metrics"
	"profecia/internal/model"
)

// PublishFunc broadcasts a message for a market over the websocket hub.
type PublishFunc func(marketID, msgType string, data any)

type Manager struct {
	store   *db.Store
	ledger  ledger.Ledger
	publish PublishFunc
	log     *zap.Logger
	metrics *metrics.Collector

	mu     sync.RWMutex
	caches map[string]*BookCache

	// seq orders published websocket events for a client reconstructing
	// a feed; it plays no role in matching authority.
	seq *atomic.Int64
}

func NewManager(store *db.Store, lg ledger.Ledger, publish PublishFunc, log *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		ledger:  lg,
		publish: publish,
		log:     log,
		metrics: metrics.GetCollector(),
		caches:  make(map[string]*BookCache),
		seq:     atomic.NewInt64(0),
	}
}

// Ledger exposes the manager's ledger client so the HTTP layer can
// issue event/option creation calls without standing up a second one.
func (m *Manager) Ledger() ledger.Ledger { return m.ledger }

// Boot warms the read cache for every unresolved market at startup.
func (m *Manager) Boot(ctx context.Context) error {
	markets, err := db.ListMarkets(ctx, m.store.DB)
	if err != nil {
		return fmt.Errorf("list markets: %w", err)
	}
	n := 0
	for _, mkt := range markets {
		if mkt.Resolved() {
			continue
		}
		if err := m.RefreshCache(ctx, mkt.ID); err != nil {
			return fmt.Errorf("refresh cache %s: %w", mkt.ID, err)
		}
		n++
	}
	m.log.Info("engine booted", zap.Int("markets_cached", n))
	return nil
}

func (m *Manager) cache(marketID string) *BookCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[marketID]
	if !ok {
		c = NewBookCache()
		m.caches[marketID] = c
	}
	return c
}

// RefreshCache reloads a market's best-bid cache from the database.
// Called after every committed match, cancel, or resolution.
func (m *Manager) RefreshCache(ctx context.Context, marketID string) error {
	orders, err := db.FindByMarket(ctx, m.store.DB, marketID)
	if err != nil {
		return err
	}
	var a, b []*bookEntry
	for _, o := range orders {
		e := &bookEntry{OrderID: o.ID, UserID: o.UserID, Price: o.PricePerShare, Shares: o.Shares, Seq: o.CreatedAt.UnixNano()}
		if o.Side == model.SideA {
			a = append(a, e)
		} else {
			b = append(b, e)
		}
	}
	m.cache(marketID).Reset(a, b)
	return nil
}

func (m *Manager) Depth(marketID string, depth int) (a, b []DepthLevel) {
	return m.cache(marketID).Snapshot(depth)
}

// PlaceOrderResult reports what a PlaceOrder call did.
type PlaceOrderResult struct {
	OrderID         string `json:"orderId,omitempty"`
	MatchedShares   int64  `json:"matchedShares"`
	RemainingShares int64  `json:"remainingShares"`
}

// PlaceOrder implements C4 step-by-step: validate, fund pre-check
// against the ledger, then a single serializable transaction that
// walks opposing open orders FIFO at the complementary price,
// followed by the post-commit ledger CreateOrder call (spec.md §4.3).
func (m *Manager) PlaceOrder(ctx context.Context, marketID, userID string, side model.Side, shares int64, price int) (*PlaceOrderResult, error) {
	v := &apperr.FieldValidator{}
	v.Require(shares >= 1 && shares <= 10_000, "shares", "must be between 1 and 10000")
	v.Require(price >= 1 && price <= 99, "pricePerShare", "must be between 1 and 99")
	v.Require(side.Valid(), "option", "must be OptionA or OptionB")
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := db.GetUser(ctx, m.store.DB, userID)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if user == nil {
		return nil, apperr.New(apperr.UserNotFound, "user not found")
	}
	market, err := db.GetMarket(ctx, m.store.DB, marketID)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	if market == nil {
		return nil, apperr.New(apperr.MarketNotFound, "market not found")
	}
	if market.Resolved() {
		return nil, apperr.New(apperr.MarketAlreadyResolved, "market already resolved")
	}

	wallet := ledger.Wallet(user.WalletSecret)
	priceMicro := model.Cents(price).ToMicro()
	needed := model.Cents(shares * int64(price)).ToMicro()
	balance, err := m.ledger.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, apperr.LedgerErr(err)
	}
	if balance < needed {
		return nil, apperr.New(apperr.InsufficientFunds, "insufficient balance")
	}

	result := &PlaceOrderResult{}
	err = db.WithSerializableRetry(ctx, m.store, func(tx *sql.Tx) error {
		*result = PlaceOrderResult{}

		mkt, err := db.GetMarketForUpdate(ctx, tx, marketID)
		if err != nil {
			return apperr.DatabaseErr(err)
		}
		if mkt == nil {
			return apperr.New(apperr.MarketNotFound, "market not found")
		}
		if mkt.Resolved() {
			return apperr.New(apperr.MarketAlreadyResolved, "market already resolved")
		}

		opposing, err := db.FindOpenOpposing(ctx, tx, marketID, side.Opposite(), 100-price)
		if err != nil {
			return apperr.DatabaseErr(err)
		}

		remaining := shares
		for _, o := range opposing {
			if remaining <= 0 {
				break
			}
			fill := o.Shares
			if remaining < fill {
				fill = remaining
			}
			if err := db.UpsertPosition(ctx, tx, marketID, userID, side, fill, price); err != nil {
				return apperr.DatabaseErr(err)
			}
			if err := db.UpsertPosition(ctx, tx, marketID, o.UserID, o.Side, fill, o.PricePerShare); err != nil {
				return apperr.DatabaseErr(err)
			}
			if fill == o.Shares {
				if err := db.DeleteBuyOrder(ctx, tx, o.ID); err != nil {
					return apperr.DatabaseErr(err)
				}
			} else {
				if err := db.UpdateBuyOrderShares(ctx, tx, o.ID, o.Shares-fill); err != nil {
					return apperr.DatabaseErr(err)
				}
			}
			remaining -= fill
			result.MatchedShares += fill
		}

		if remaining > 0 {
			inserted, err := db.InsertBuyOrder(ctx, tx, model.BuyOrder{
				MarketID: marketID, UserID: userID, Side: side,
				Shares: remaining, PricePerShare: price,
			})
			if err != nil {
				return apperr.DatabaseErr(err)
			}
			result.OrderID = inserted.ID
			result.RemainingShares = remaining
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.RecordOrderPlaced(marketID, string(side.ToDto()))
	if result.MatchedShares > 0 {
		m.metrics.RecordOrderMatched(marketID)
	}

	eventUUID, market2UUID := parseMarketUUIDs(market)
	_, lerr := m.ledger.CreateOrder(ctx, wallet, eventUUID, market2UUID, shares, priceMicro)
	if lerr != nil {
		m.log.Error("ledger create order failed",
			zap.String("market_id", marketID), zap.String("user_id", userID), zap.Error(lerr))
		m.metrics.RecordLedgerError(string(ledger.InstrFakeCreateOrder))
	}

	if err := m.RefreshCache(ctx, marketID); err != nil {
		m.log.Error("cache refresh failed", zap.String("market_id", marketID), zap.Error(err))
	}
	if m.publish != nil {
		m.publish(marketID, "match", map[string]any{
			"seq": m.seq.Inc(), "userId": userID, "option": side.ToDto(),
			"shares": shares, "pricePerShare": price, "result": result,
		})
	}
	if lerr != nil {
		// The match is already committed; the ledger failure is reported
		// to the caller without undoing it.
		return result, apperr.LedgerErr(lerr)
	}
	return result, nil
}

// CancelOrder implements the owner-checked cancel path: delete in one
// transaction, then refund after commit (spec.md §4.3).
func (m *Manager) CancelOrder(ctx context.Context, orderID, callerID string) (ledger.TxRef, error) {
	order, err := db.GetBuyOrder(ctx, m.store.DB, orderID)
	if err != nil {
		return "", apperr.DatabaseErr(err)
	}
	if order == nil {
		return "", apperr.New(apperr.BuyOrderNotFound, "buy order not found")
	}
	if order.UserID != callerID {
		return "", apperr.New(apperr.Unauthorized, "not the order owner")
	}

	err = db.WithSerializableRetry(ctx, m.store, func(tx *sql.Tx) error {
		return db.DeleteBuyOrder(ctx, tx, orderID)
	})
	if err != nil {
		return "", err
	}

	user, err := db.GetUser(ctx, m.store.DB, callerID)
	if err != nil || user == nil {
		return "", apperr.New(apperr.UserNotFound, "user not found")
	}
	market, err := db.GetMarket(ctx, m.store.DB, order.MarketID)
	if err != nil || market == nil {
		return "", apperr.New(apperr.MarketNotFound, "market not found")
	}

	eventUUID, marketUUID := parseMarketUUIDs(market)
	ref, lerr := m.ledger.CancelOrder(ctx, ledger.Wallet(user.WalletSecret), eventUUID, marketUUID,
		order.Shares, model.Cents(order.PricePerShare).ToMicro())
	if lerr != nil {
		m.log.Error("ledger cancel order failed", zap.String("order_id", orderID), zap.Error(lerr))
		m.metrics.RecordLedgerError(string(ledger.InstrFakeCancelOrder))
		return "", apperr.LedgerErr(lerr)
	}
	m.metrics.RecordOrderCanceled(order.MarketID)

	if err := m.RefreshCache(ctx, order.MarketID); err != nil {
		m.log.Error("cache refresh failed", zap.String("market_id", order.MarketID), zap.Error(err))
	}
	if m.publish != nil {
		m.publish(order.MarketID, "cancel", map[string]any{"seq": m.seq.Inc(), "orderId": orderID})
	}
	return ref, nil
}

func parseMarketUUIDs(market *model.Market) (event, mkt uuid.UUID) {
	event, _ = uuid.Parse(market.EventID)
	mkt, _ = uuid.Parse(market.ID)
	return
}
