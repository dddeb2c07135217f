// Package percentage derives implied probabilities from a market's
// open order book (C6, spec.md §4.5). It is a pure function: callers
// own whether the orders were fetched inside a transaction or on a
// fresh read.
package percentage

import "profecia/internal/model"

// Evaluate returns the implied percentage for each side of a market
// given its open buy orders, or (nil, nil) if neither side has a bid.
//
// The best bid on each side is the highest resting price; when both
// sides have a bid, the two sides' implied prices (best_a_bid and
// 100-best_b_bid) are averaged with a +1 tie-break before integer
// division, matching the source's implied_probability exactly.
func Evaluate(orders []model.BuyOrder) (pctA, pctB *int64) {
	var bestA, bestB int64

	for _, o := range orders {
		switch o.Side {
		case model.SideA:
			if int64(o.PricePerShare) > bestA {
				bestA = int64(o.PricePerShare)
			}
		case model.SideB:
			if int64(o.PricePerShare) > bestB {
				bestB = int64(o.PricePerShare)
			}
		}
	}

	var a int64
	switch {
	case bestA > 0 && bestB > 0:
		impliedFromA := bestA
		impliedFromB := 100 - bestB
		a = (impliedFromA + impliedFromB + 1) / 2
	case bestA > 0:
		a = bestA
	case bestB > 0:
		a = 100 - bestB
	default:
		return nil, nil
	}

	b := 100 - a
	return &a, &b
}
