// Package snapshot is the snapshot scheduler (C7, spec.md §4.6): a
// fixed-interval background loop that records each market's implied
// percentages for charting, plus the event-chart query that groups
// those snapshot rows back into time-series points.
package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"profecia/internal/db"
	"profecia/internal/model"
	"profecia/internal/percentage"
)

// PublishFunc broadcasts a snapshot tick for a market.
type PublishFunc func(marketID, msgType string, data any)

type Scheduler struct {
	store    *db.Store
	log      *zap.Logger
	interval time.Duration
	publish  PublishFunc
}

func New(store *db.Store, log *zap.Logger, interval time.Duration, publish PublishFunc) *Scheduler {
	return &Scheduler{store: store, log: log, interval: interval, publish: publish}
}

// Run blocks, ticking every interval until ctx is canceled. A failed
// tick is logged and never stops the ticker (spec.md §4.6).
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Error("snapshot tick failed", zap.Error(err))
			}
		}
	}
}

// Tick records one snapshot per market — including resolved ones,
// which simply snapshot as (nil, nil) since they have no open orders
// left — all sharing a single recorded_at timestamp for the batch.
func (s *Scheduler) Tick(ctx context.Context) error {
	markets, err := db.ListMarkets(ctx, s.store.DB)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	for _, m := range markets {
		orders, err := db.FindByMarket(ctx, s.store.DB, m.ID)
		if err != nil {
			return err
		}
		pctA, pctB := percentage.Evaluate(orders)
		if err := db.InsertSnapshot(ctx, s.store.DB, m.ID, now, pctA, pctB); err != nil {
			return err
		}
		if s.publish != nil {
			s.publish(m.ID, "snapshot", model.PercentagesDto{
				MarketID: m.ID, OptionAPercentage: pctA, OptionBPercentage: pctB,
			})
		}
	}
	return nil
}

// EventChart groups an event's already-time-ordered snapshot rows by
// equal recorded_at, folding consecutive rows into one point the same
// way the source's time_groups fold does; each point keys a market's
// option-A percentage by market id.
func (s *Scheduler) EventChart(ctx context.Context, eventID string) (*model.EventChartDto, error) {
	rows, err := db.ListSnapshotsForEvent(ctx, s.store.DB, eventID)
	if err != nil {
		return nil, err
	}
	return &model.EventChartDto{Points: foldTimeGroups(rows)}, nil
}

// foldTimeGroups groups already-time-ordered snapshot rows by equal
// recorded_at, the same way the source's time_groups fold does.
func foldTimeGroups(rows []model.MarketSnapshot) []model.MarketSnapshotPointDto {
	var points []model.MarketSnapshotPointDto
	for _, row := range rows {
		key := row.RecordedAt.Format(time.RFC3339Nano)
		if n := len(points); n > 0 && points[n-1].RecordedAt == key {
			points[n-1].Percentages[row.MarketID] = row.OptionAPercentage
			continue
		}
		points = append(points, model.MarketSnapshotPointDto{
			RecordedAt:  key,
			Percentages: map[string]*int64{row.MarketID: row.OptionAPercentage},
		})
	}
	if points == nil {
		points = []model.MarketSnapshotPointDto{}
	}
	return points
}
