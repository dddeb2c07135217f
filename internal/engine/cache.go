package engine

import "sort"

// bookEntry is a resting order as seen by the read cache.
type bookEntry struct {
	OrderID string
	UserID  string
	Price   int
	Shares  int64
	Seq     int64
}

type level struct {
	Price  int
	Orders []*bookEntry
}

func (l *level) totalShares() int64 {
	var t int64
	for _, o := range l.Orders {
		t += o.Shares
	}
	return t
}

// BookCache is an in-memory best-bid read cache for one market's two
// sides, adapted from the teacher's in-memory OrderBook. It is NOT the
// matching authority (§9 Open Question decision 1 — Postgres
// serializable transactions are); it only answers best-bid and depth
// reads (Manager.Depth), and is refreshed from the database after every
// committed match, cancel, or resolution. The HTTP percentage handlers
// do not read it; they query Postgres directly.
type BookCache struct {
	sideA       map[int]*level
	sideB       map[int]*level
	sideAPrices []int // sorted descending — highest bid first
	sideBPrices []int
	index       map[string]*bookEntry
}

func NewBookCache() *BookCache {
	return &BookCache{
		sideA: make(map[int]*level),
		sideB: make(map[int]*level),
		index: make(map[string]*bookEntry),
	}
}

func (b *BookCache) BestBid(sideA bool) *int {
	prices := b.sideAPrices
	if !sideA {
		prices = b.sideBPrices
	}
	if len(prices) == 0 {
		return nil
	}
	p := prices[0]
	return &p
}

func (b *BookCache) Size() int { return len(b.index) }

// DepthLevel is the wire shape for a depth snapshot.
type DepthLevel struct {
	Price  int   `json:"price"`
	Shares int64 `json:"shares"`
}

func (b *BookCache) Snapshot(depth int) (a, bSide []DepthLevel) {
	for i := 0; i < len(b.sideAPrices) && i < depth; i++ {
		p := b.sideAPrices[i]
		a = append(a, DepthLevel{Price: p, Shares: b.sideA[p].totalShares()})
	}
	for i := 0; i < len(b.sideBPrices) && i < depth; i++ {
		p := b.sideBPrices[i]
		bSide = append(bSide, DepthLevel{Price: p, Shares: b.sideB[p].totalShares()})
	}
	if a == nil {
		a = []DepthLevel{}
	}
	if bSide == nil {
		bSide = []DepthLevel{}
	}
	return
}

func (b *BookCache) add(sideA bool, e *bookEntry) {
	if _, exists := b.index[e.OrderID]; exists {
		return
	}
	b.index[e.OrderID] = e
	if sideA {
		addToLevels(b.sideA, &b.sideAPrices, e)
	} else {
		addToLevels(b.sideB, &b.sideBPrices, e)
	}
}

// Reset replaces the cache contents wholesale from a fresh read of a
// market's open orders — the refresh path the matching/resolution
// engine calls after every commit, rather than mutating the cache
// incrementally during a match.
func (b *BookCache) Reset(ordersA, ordersB []*bookEntry) {
	b.sideA = make(map[int]*level)
	b.sideB = make(map[int]*level)
	b.sideAPrices = nil
	b.sideBPrices = nil
	b.index = make(map[string]*bookEntry)
	for _, e := range ordersA {
		b.add(true, e)
	}
	for _, e := range ordersB {
		b.add(false, e)
	}
}

func addToLevels(m map[int]*level, prices *[]int, e *bookEntry) {
	lv, ok := m[e.Price]
	if !ok {
		lv = &level{Price: e.Price}
		m[e.Price] = lv
		*prices = append(*prices, e.Price)
		sort.Sort(sort.Reverse(sort.IntSlice(*prices)))
	}
	lv.Orders = append(lv.Orders, e)
}
