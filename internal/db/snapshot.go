package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"profecia/internal/model"
)

// ── Snapshot Store (MOD-SNAPSHOT, C7) ───────────────────

func InsertSnapshot(ctx context.Context, q Queryer, marketID string, recordedAt time.Time, pctA, pctB *int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO market_snapshots (id, market_id, recorded_at, option_a_percentage, option_b_percentage)
		 VALUES ($1,$2,$3,$4,$5)`,
		uuid.New().String(), marketID, recordedAt, pctA, pctB,
	)
	return err
}

// ListSnapshotsForEvent returns every snapshot row across an event's
// markets, ordered by recorded_at — the ordering EventChart's
// time-group fold (C7) relies on.
func ListSnapshotsForEvent(ctx context.Context, q Queryer, eventID string) ([]model.MarketSnapshot, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT s.id, s.market_id, s.recorded_at, s.option_a_percentage, s.option_b_percentage
		 FROM market_snapshots s
		 JOIN markets m ON m.id = s.market_id
		 WHERE m.event_id = $1
		 ORDER BY s.recorded_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MarketSnapshot
	for rows.Next() {
		var s model.MarketSnapshot
		if err := rows.Scan(&s.ID, &s.MarketID, &s.RecordedAt, &s.OptionAPercentage, &s.OptionBPercentage); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
