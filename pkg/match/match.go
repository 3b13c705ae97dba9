package match

import (
	"strconv"

	"github.com/ordermesh/ordermesh/pkg/order"
)

// FindMatches scans all known orders for price-compatible counter-offers to
// newOrder. A candidate is compatible when it is a different order, still
// pending, quotes the same fiat currency, sits on the opposite side, and its
// premium crosses newOrder's premium: a buy matches sells at or below its
// premium, a sell matches buys at or above.
//
// This is a pure query: no trade is created and no status changes. Calling
// it twice against an unchanged store yields the same result set.
func FindMatches(newOrder order.Order, all []order.Order) []order.Order {
	newPremium, ok := parsePremium(newOrder.Premium)
	if !ok {
		return nil
	}

	var want string
	switch newOrder.Side {
	case order.SideBuy:
		want = order.SideSell
	case order.SideSell:
		want = order.SideBuy
	default:
		// Unknown side: retained in the store, excluded from matching.
		return nil
	}

	var matches []order.Order
	for _, cand := range all {
		if cand.ID == newOrder.ID {
			continue
		}
		if cand.Status != order.StatusPending {
			continue
		}
		if cand.FiatCurrency != newOrder.FiatCurrency {
			continue
		}
		if cand.Side != want {
			continue
		}
		candPremium, ok := parsePremium(cand.Premium)
		if !ok {
			// Non-numeric premium never satisfies either comparison.
			continue
		}
		if newOrder.Side == order.SideBuy && candPremium <= newPremium {
			matches = append(matches, cand)
		} else if newOrder.Side == order.SideSell && candPremium >= newPremium {
			matches = append(matches, cand)
		}
	}
	return matches
}

func parsePremium(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts "NaN"; it must not match anything either.
	if f != f {
		return 0, false
	}
	return f, true
}
