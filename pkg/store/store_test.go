package store

import (
	"strconv"
	"testing"
	"time"

	"github.com/ordermesh/ordermesh/pkg/order"
)

func o(id string) order.Order {
	return order.Order{ID: id, Side: order.SideBuy, FiatCurrency: "USD", Status: order.StatusPending}
}

func TestTryInsertDedup(t *testing.T) {
	s := New()

	if !s.TryInsert(o("a")) {
		t.Fatal("first insert must succeed")
	}
	if s.TryInsert(o("a")) {
		t.Fatal("second insert of same id must fail")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	// Contents unchanged after the rejected insert.
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != "a" {
		t.Fatalf("snapshot = %v", snap)
	}
}

func TestSnapshotInsertionOrder(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.TryInsert(o("id-" + strconv.Itoa(i)))
	}
	// Replays interleaved with new inserts must not disturb ordering.
	s.TryInsert(o("id-3"))
	s.TryInsert(o("id-10"))

	snap := s.Snapshot()
	if len(snap) != 11 {
		t.Fatalf("len = %d, want 11", len(snap))
	}
	for i := 0; i < 10; i++ {
		if snap[i].ID != "id-"+strconv.Itoa(i) {
			t.Fatalf("snapshot[%d] = %s", i, snap[i].ID)
		}
	}
	if snap[10].ID != "id-10" {
		t.Fatalf("snapshot[10] = %s", snap[10].ID)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New()
	s.TryInsert(o("a"))
	snap := s.Snapshot()
	s.TryInsert(o("b"))
	if len(snap) != 1 {
		t.Fatal("snapshot must not observe later inserts")
	}
}

func TestGet(t *testing.T) {
	s := New()
	s.TryInsert(o("a"))

	if got, ok := s.Get("a"); !ok || got.ID != "a" {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get(missing) must report absence")
	}
}

func TestSweepExpired(t *testing.T) {
	now := time.Unix(1_756_700_000, 0)
	past := strconv.FormatInt(now.Unix()-60, 10)
	future := strconv.FormatInt(now.Unix()+60, 10)

	s := New()
	expired := o("expired")
	expired.Expiration = past
	keeps := o("keeps")
	keeps.Expiration = future
	forever := o("forever") // no expiration
	garbled := o("garbled")
	garbled.Expiration = "not-a-timestamp"

	for _, ord := range []order.Order{expired, keeps, forever, garbled} {
		s.TryInsert(ord)
	}

	if removed := s.SweepExpired(now); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for _, ord := range snap {
		if ord.ID == "expired" {
			t.Fatal("expired order survived sweep")
		}
	}

	// The swept id is free again: a superseding event may reuse the store.
	if _, ok := s.Get("expired"); ok {
		t.Fatal("swept order still addressable")
	}
}
