package match

import (
	"testing"

	"github.com/ordermesh/ordermesh/pkg/order"
)

func sell(id, fiat, premium string) order.Order {
	return order.Order{ID: id, Side: order.SideSell, FiatCurrency: fiat, Premium: premium, Status: order.StatusPending}
}

func buy(id, fiat, premium string) order.Order {
	return order.Order{ID: id, Side: order.SideBuy, FiatCurrency: fiat, Premium: premium, Status: order.StatusPending}
}

func ids(orders []order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestFindMatchesPriceCrossing(t *testing.T) {
	all := []order.Order{
		sell("s1", "USD", "3"),
		sell("s2", "USD", "6"),
		buy("b1", "USD", "4"),
	}

	tests := []struct {
		name     string
		newOrder order.Order
		want     []string
	}{
		{
			name:     "buy matches sells at or below its premium",
			newOrder: buy("b2", "USD", "5"),
			want:     []string{"s1"},
		},
		{
			name:     "buy below every sell matches nothing",
			newOrder: buy("b3", "USD", "2"),
			want:     nil,
		},
		{
			name:     "sell matches buys at or above its premium",
			newOrder: sell("s3", "USD", "4"),
			want:     []string{"b1"},
		},
		{
			name:     "equal premium crosses",
			newOrder: buy("b4", "USD", "3"),
			want:     []string{"s1"},
		},
		{
			name:     "different fiat never matches",
			newOrder: buy("b5", "EUR", "10"),
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FindMatches(tt.newOrder, all))
			if len(got) != len(tt.want) {
				t.Fatalf("matches = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("matches = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

// If A(buy, 2) matches B(sell, 1), then recomputing for B after A is stored
// must report A.
func TestMatchingSymmetry(t *testing.T) {
	a := buy("a", "USD", "2")
	b := sell("b", "USD", "1")

	if got := ids(FindMatches(a, []order.Order{b})); len(got) != 1 || got[0] != "b" {
		t.Fatalf("A against [B] = %v, want [b]", got)
	}
	if got := ids(FindMatches(b, []order.Order{a, b})); len(got) != 1 || got[0] != "a" {
		t.Fatalf("B against [A B] = %v, want [a]", got)
	}
}

func TestNonNumericPremiumNeverMatches(t *testing.T) {
	candidates := []order.Order{
		sell("bad1", "USD", "n/a"),
		buy("bad2", "USD", "NaN"),
		sell("bad3", "USD", ""),
	}

	if got := FindMatches(buy("b", "USD", "100"), candidates); len(got) != 0 {
		t.Errorf("buy matched non-numeric premiums: %v", ids(got))
	}
	if got := FindMatches(sell("s", "USD", "-100"), candidates); len(got) != 0 {
		t.Errorf("sell matched non-numeric premiums: %v", ids(got))
	}
	// A new order with a non-numeric premium matches nothing either.
	if got := FindMatches(buy("b2", "USD", "n/a"), []order.Order{sell("ok", "USD", "0")}); len(got) != 0 {
		t.Errorf("non-numeric new order matched: %v", ids(got))
	}
}

func TestMatchFilters(t *testing.T) {
	tests := []struct {
		name      string
		candidate order.Order
		matches   bool
	}{
		{"pending counter-offer matches", sell("c1", "USD", "1"), true},
		{"non-pending excluded", order.Order{ID: "c2", Side: order.SideSell, FiatCurrency: "USD", Premium: "1", Status: order.StatusCompleted}, false},
		{"same side excluded", buy("c3", "USD", "1"), false},
		{"unknown side excluded", order.Order{ID: "c4", Side: "long", FiatCurrency: "USD", Premium: "1", Status: order.StatusPending}, false},
		{"self excluded by id", sell("new", "USD", "1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatches(buy("new", "USD", "5"), []order.Order{tt.candidate})
			if (len(got) == 1) != tt.matches {
				t.Errorf("matches = %v, want match=%v", ids(got), tt.matches)
			}
		})
	}
}

// Matching is a pure query: same store, same result.
func TestMatchingIdempotent(t *testing.T) {
	all := []order.Order{sell("s1", "USD", "1"), sell("s2", "USD", "2"), buy("b1", "USD", "9")}
	n := buy("new", "USD", "5")

	first := ids(FindMatches(n, all))
	second := ids(FindMatches(n, all))
	if len(first) != len(second) {
		t.Fatalf("result changed: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("result changed: %v vs %v", first, second)
		}
	}
}
