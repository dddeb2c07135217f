package engine

import "testing"

func TestCacheBestBid(t *testing.T) {
	c := NewBookCache()
	c.Reset(
		[]*bookEntry{
			{OrderID: "a1", UserID: "u1", Price: 40, Shares: 10, Seq: 1},
			{OrderID: "a2", UserID: "u1", Price: 45, Shares: 5, Seq: 2},
		},
		[]*bookEntry{
			{OrderID: "b1", UserID: "u2", Price: 55, Shares: 10, Seq: 3},
		},
	)

	if c.Size() != 3 {
		t.Fatalf("expected size 3, got %d", c.Size())
	}
	if bb := c.BestBid(true); bb == nil || *bb != 45 {
		t.Fatalf("expected best side-A bid 45, got %v", bb)
	}
	if bb := c.BestBid(false); bb == nil || *bb != 55 {
		t.Fatalf("expected best side-B bid 55, got %v", bb)
	}
}

func TestCacheSnapshotDepth(t *testing.T) {
	c := NewBookCache()
	c.Reset(
		[]*bookEntry{
			{OrderID: "a1", Price: 10, Shares: 3},
			{OrderID: "a2", Price: 20, Shares: 4},
			{OrderID: "a3", Price: 30, Shares: 5},
		},
		nil,
	)

	a, b := c.Snapshot(2)
	if len(a) != 2 {
		t.Fatalf("expected 2 levels at depth 2, got %d", len(a))
	}
	if a[0].Price != 30 || a[0].Shares != 5 {
		t.Fatalf("expected top level price=30 shares=5, got %+v", a[0])
	}
	if len(b) != 0 {
		t.Fatalf("expected empty side B, got %v", b)
	}
}

func TestCacheResetReplacesContents(t *testing.T) {
	c := NewBookCache()
	c.Reset([]*bookEntry{{OrderID: "a1", Price: 10, Shares: 1}}, nil)
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
	c.Reset(nil, nil)
	if c.Size() != 0 {
		t.Fatalf("expected size 0 after empty reset, got %d", c.Size())
	}
	if bb := c.BestBid(true); bb != nil {
		t.Fatalf("expected nil best bid after reset, got %v", *bb)
	}
}
