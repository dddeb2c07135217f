package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"profecia/internal/model"
)

// ── Events & Markets (MOD-EVENT) ────────────────────────

func CreateEvent(ctx context.Context, q Queryer, displayName string) (*model.Event, error) {
	e := &model.Event{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO events (id, display_name) VALUES ($1,$2) RETURNING id, display_name`,
		uuid.New().String(), displayName,
	).Scan(&e.ID, &e.DisplayName)
	return e, err
}

func GetEvent(ctx context.Context, q Queryer, id string) (*model.Event, error) {
	e := &model.Event{}
	err := q.QueryRowContext(ctx, `SELECT id, display_name FROM events WHERE id=$1`, id).Scan(&e.ID, &e.DisplayName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func ListEvents(ctx context.Context, q Queryer) ([]model.Event, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, display_name FROM events ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func CreateMarket(ctx context.Context, q Queryer, m model.Market) (*model.Market, error) {
	out := &model.Market{}
	var resolved *string
	err := q.QueryRowContext(ctx,
		`INSERT INTO markets (id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint, resolved_option, created_at`,
		uuid.New().String(), m.EventID, m.DisplayName, m.OptionAName, m.OptionBName, m.Rules, m.YesMint, m.NoMint,
	).Scan(&out.ID, &out.EventID, &out.DisplayName, &out.OptionAName, &out.OptionBName, &out.Rules,
		&out.YesMint, &out.NoMint, &resolved, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		s := model.Side(*resolved)
		out.ResolvedOption = &s
	}
	return out, nil
}

func GetMarket(ctx context.Context, q Queryer, id string) (*model.Market, error) {
	return scanMarket(q.QueryRowContext(ctx,
		`SELECT id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint, resolved_option, created_at
		 FROM markets WHERE id=$1`, id))
}

// GetMarketForUpdate locks the market row for the duration of the
// caller's transaction, so a concurrent resolve can't race a match.
func GetMarketForUpdate(ctx context.Context, q Queryer, id string) (*model.Market, error) {
	return scanMarket(q.QueryRowContext(ctx,
		`SELECT id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint, resolved_option, created_at
		 FROM markets WHERE id=$1 FOR UPDATE`, id))
}

func scanMarket(row *sql.Row) (*model.Market, error) {
	m := &model.Market{}
	var resolved *string
	err := row.Scan(&m.ID, &m.EventID, &m.DisplayName, &m.OptionAName, &m.OptionBName, &m.Rules,
		&m.YesMint, &m.NoMint, &resolved, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		s := model.Side(*resolved)
		m.ResolvedOption = &s
	}
	return m, nil
}

func ListMarketsByEvent(ctx context.Context, q Queryer, eventID string) ([]model.Market, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint, resolved_option, created_at
		 FROM markets WHERE event_id=$1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func ListMarkets(ctx context.Context, q Queryer) ([]model.Market, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, display_name, option_a_name, option_b_name, rules, yes_mint, no_mint, resolved_option, created_at
		 FROM markets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarkets(rows)
}

func scanMarkets(rows *sql.Rows) ([]model.Market, error) {
	var out []model.Market
	for rows.Next() {
		var m model.Market
		var resolved *string
		if err := rows.Scan(&m.ID, &m.EventID, &m.DisplayName, &m.OptionAName, &m.OptionBName, &m.Rules,
			&m.YesMint, &m.NoMint, &resolved, &m.CreatedAt); err != nil {
			return nil, err
		}
		if resolved != nil {
			s := model.Side(*resolved)
			m.ResolvedOption = &s
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetResolvedOption marks a market resolved inside the caller's
// transaction (C5's job alone — §9 "MOD-EVENT PATCH operations never
// touch resolved_option").
func SetResolvedOption(ctx context.Context, q Queryer, marketID string, side model.Side) error {
	_, err := q.ExecContext(ctx, `UPDATE markets SET resolved_option=$1 WHERE id=$2`, string(side), marketID)
	return err
}

func UpdateMarketMetadata(ctx context.Context, q Queryer, marketID, displayName, rules string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE markets SET display_name=$1, rules=$2 WHERE id=$3`, displayName, rules, marketID)
	return err
}
