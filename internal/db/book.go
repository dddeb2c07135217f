package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"profecia/internal/model"
)

// ── Order Book Store (MOD-BOOK, C3) ─────────────────────

func InsertBuyOrder(ctx context.Context, q Queryer, o model.BuyOrder) (*model.BuyOrder, error) {
	out := &model.BuyOrder{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO buy_orders (id, market_id, user_id, side, shares, price_per_share)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id, market_id, user_id, side, shares, price_per_share, created_at`,
		uuid.New().String(), o.MarketID, o.UserID, string(o.Side), o.Shares, o.PricePerShare,
	).Scan(&out.ID, &out.MarketID, &out.UserID, (*string)(&out.Side), &out.Shares, &out.PricePerShare, &out.CreatedAt)
	return out, err
}

func DeleteBuyOrder(ctx context.Context, q Queryer, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM buy_orders WHERE id=$1`, id)
	return err
}

func UpdateBuyOrderShares(ctx context.Context, q Queryer, id string, shares int64) error {
	_, err := q.ExecContext(ctx, `UPDATE buy_orders SET shares=$1 WHERE id=$2`, shares, id)
	return err
}

func GetBuyOrder(ctx context.Context, q Queryer, id string) (*model.BuyOrder, error) {
	o := &model.BuyOrder{}
	err := q.QueryRowContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share, created_at FROM buy_orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.MarketID, &o.UserID, (*string)(&o.Side), &o.Shares, &o.PricePerShare, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// FindOpenOpposing returns resting orders on the opposite side of a
// market at the exact complementary price, oldest first — the FIFO
// queue C4 walks when matching (spec.md §4.3, unchanged).
func FindOpenOpposing(ctx context.Context, q Queryer, marketID string, side model.Side, price int) ([]model.BuyOrder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share, created_at
		 FROM buy_orders
		 WHERE market_id=$1 AND side=$2 AND price_per_share=$3 AND shares > 0
		 ORDER BY created_at ASC`,
		marketID, string(side), price,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBuyOrders(rows)
}

func FindByMarket(ctx context.Context, q Queryer, marketID string) ([]model.BuyOrder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share, created_at
		 FROM buy_orders WHERE market_id=$1 ORDER BY created_at ASC`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBuyOrders(rows)
}

func FindByUser(ctx context.Context, q Queryer, marketID, userID string) ([]model.BuyOrder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share, created_at
		 FROM buy_orders WHERE market_id=$1 AND user_id=$2 ORDER BY created_at ASC`, marketID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBuyOrders(rows)
}

func scanBuyOrders(rows *sql.Rows) ([]model.BuyOrder, error) {
	var out []model.BuyOrder
	for rows.Next() {
		var o model.BuyOrder
		if err := rows.Scan(&o.ID, &o.MarketID, &o.UserID, (*string)(&o.Side), &o.Shares, &o.PricePerShare, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteAllOpenForMarket deletes every resting order for a market
// (C5 resolution's refund-everything step) and returns what was
// deleted so the caller can refund each one.
func DeleteAllOpenForMarket(ctx context.Context, q Queryer, marketID string) ([]model.BuyOrder, error) {
	orders, err := FindByMarket(ctx, q, marketID)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM buy_orders WHERE market_id=$1`, marketID); err != nil {
		return nil, err
	}
	return orders, nil
}
