package storage

import (
	"testing"

	"github.com/ordermesh/ordermesh/pkg/order"
)

func TestOrderDBRoundTrip(t *testing.T) {
	db, err := OpenOrderDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	o := order.Order{
		ID:             "evt-1",
		AuthorKey:      "02abc",
		CreatedAt:      1756700000,
		Side:           order.SideSell,
		FiatCurrency:   "EUR",
		Amount:         "100",
		MinAmount:      "100",
		MaxAmount:      "200",
		Premium:        "3",
		Status:         order.StatusPending,
		PaymentMethods: []string{"SEPA"},
		OriginSources:  []string{"lnp2pbot"},
		Network:        order.DefaultNetwork,
		Layer:          order.DefaultLayer,
		Rating:         order.Rating{TotalReviews: 4, TotalRating: 3.5, MaxRate: 5},
		Trades:         4,
	}
	if err := db.Put(o); err != nil {
		t.Fatal(err)
	}

	got, ok, err := db.Get("evt-1")
	if err != nil || !ok {
		t.Fatalf("Get: %v, %v", ok, err)
	}
	if got.ID != o.ID || got.Premium != o.Premium || got.Rating != o.Rating {
		t.Fatalf("journaled order mutated: %+v", got)
	}

	if _, ok, _ := db.Get("missing"); ok {
		t.Fatal("Get(missing) reported presence")
	}
}

func TestOrderDBLoadAll(t *testing.T) {
	db, err := OpenOrderDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := db.Put(order.Order{ID: id, Side: order.SideBuy, Status: order.StatusPending}); err != nil {
			t.Fatal(err)
		}
	}
	// Overwriting the same id stays a single entry.
	if err := db.Put(order.Order{ID: "b", Side: order.SideBuy, Status: order.StatusCancelled}); err != nil {
		t.Fatal(err)
	}

	all, err := db.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("loaded %d orders, want 3", len(all))
	}
	seen := map[string]bool{}
	for _, o := range all {
		seen[o.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Fatalf("order %s missing from LoadAll", id)
		}
	}
}
