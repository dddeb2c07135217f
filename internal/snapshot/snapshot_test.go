package snapshot

import (
	"testing"
	"time"

	"profecia/internal/model"
)

func int64p(v int64) *int64 { return &v }

func TestFoldTimeGroups_GroupsEqualTimestamps(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	rows := []model.MarketSnapshot{
		{MarketID: "m1", RecordedAt: t0, OptionAPercentage: int64p(40)},
		{MarketID: "m2", RecordedAt: t0, OptionAPercentage: int64p(60)},
		{MarketID: "m1", RecordedAt: t1, OptionAPercentage: int64p(45)},
	}

	points := foldTimeGroups(rows)
	if len(points) != 2 {
		t.Fatalf("expected 2 time groups, got %d", len(points))
	}
	if len(points[0].Percentages) != 2 {
		t.Fatalf("expected first group to have 2 markets, got %d", len(points[0].Percentages))
	}
	if *points[0].Percentages["m1"] != 40 || *points[0].Percentages["m2"] != 60 {
		t.Fatalf("unexpected first group contents: %+v", points[0].Percentages)
	}
	if len(points[1].Percentages) != 1 || *points[1].Percentages["m1"] != 45 {
		t.Fatalf("unexpected second group contents: %+v", points[1].Percentages)
	}
}

func TestFoldTimeGroups_Empty(t *testing.T) {
	points := foldTimeGroups(nil)
	if len(points) != 0 {
		t.Fatalf("expected 0 points, got %d", len(points))
	}
}

func TestFoldTimeGroups_NilPercentage(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.MarketSnapshot{
		{MarketID: "m1", RecordedAt: t0, OptionAPercentage: nil},
	}
	points := foldTimeGroups(rows)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Percentages["m1"] != nil {
		t.Fatalf("expected nil percentage to be preserved")
	}
}
