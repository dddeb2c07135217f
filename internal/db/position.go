package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"profecia/internal/model"
)

// ── Position Store (MOD-POSITION, C2) ───────────────────

// UpsertPosition grows the (market, user, side, price) aggregate by
// sharesDelta, which must be positive. Mirrors the teacher's
// UpsertPosition ON CONFLICT idiom, generalized to the (market, user,
// side, price) key spec.md §4.2 requires.
func UpsertPosition(ctx context.Context, q Queryer, marketID, userID string, side model.Side, sharesDelta int64, price int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO positions (id, market_id, user_id, side, shares, price_per_share)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (market_id, user_id, side, price_per_share)
		 DO UPDATE SET shares = positions.shares + $5`,
		uuid.New().String(), marketID, userID, string(side), sharesDelta, price,
	)
	return err
}

func ListPositionsByMarket(ctx context.Context, q Queryer, marketID string) ([]model.Position, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share
		 FROM positions WHERE market_id=$1`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

// ListWinningPositions returns every position on the winning side of a
// resolved market — the set C5 pays out (spec.md §4.4).
func ListWinningPositions(ctx context.Context, q Queryer, marketID string, winningSide model.Side) ([]model.Position, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share
		 FROM positions WHERE market_id=$1 AND side=$2`, marketID, string(winningSide))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func ListPositionsByUser(ctx context.Context, q Queryer, userID string) ([]model.Position, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, market_id, user_id, side, shares, price_per_share
		 FROM positions WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func scanPositions(rows *sql.Rows) ([]model.Position, error) {
	var out []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.MarketID, &p.UserID, (*string)(&p.Side), &p.Shares, &p.PricePerShare); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
