package percentage

import (
	"testing"

	"profecia/internal/model"
)

func order(side model.Side, price int) model.BuyOrder {
	return model.BuyOrder{Side: side, PricePerShare: price, Shares: 1}
}

func TestEvaluate_NoOrders(t *testing.T) {
	a, b := Evaluate(nil)
	if a != nil || b != nil {
		t.Fatalf("expected nil/nil, got %v/%v", a, b)
	}
}

func TestEvaluate_OnlySideA(t *testing.T) {
	a, b := Evaluate([]model.BuyOrder{order(model.SideA, 30)})
	if a == nil || *a != 30 {
		t.Fatalf("expected pctA 30, got %v", a)
	}
	if b == nil || *b != 70 {
		t.Fatalf("expected pctB 70, got %v", b)
	}
}

func TestEvaluate_OnlySideB(t *testing.T) {
	a, b := Evaluate([]model.BuyOrder{order(model.SideB, 40)})
	if a == nil || *a != 60 {
		t.Fatalf("expected pctA 60, got %v", a)
	}
	if b == nil || *b != 40 {
		t.Fatalf("expected pctB 40, got %v", b)
	}
}

func TestEvaluate_BothSides_Tiebreak(t *testing.T) {
	// best_a_bid=30, best_b_bid=65 -> implied_from_a=30, implied_from_b=35
	// (30+35+1)/2 = 33 (integer division)
	a, b := Evaluate([]model.BuyOrder{
		order(model.SideA, 30),
		order(model.SideB, 65),
	})
	if a == nil || *a != 33 {
		t.Fatalf("expected pctA 33, got %v", a)
	}
	if b == nil || *b != 67 {
		t.Fatalf("expected pctB 67, got %v", b)
	}
}

func TestEvaluate_BestBidIsMax(t *testing.T) {
	a, _ := Evaluate([]model.BuyOrder{
		order(model.SideA, 20),
		order(model.SideA, 45),
		order(model.SideA, 10),
	})
	if a == nil || *a != 45 {
		t.Fatalf("expected best bid 45, got %v", a)
	}
}
