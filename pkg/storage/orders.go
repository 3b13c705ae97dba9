package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/ordermesh/ordermesh/pkg/order"
)

// OrderDB journals accepted orders to disk so a restarted node keeps the
// orders it has already seen. A fresh subscription carries no replay
// guarantee, so the journal is the only memory across restarts.
type OrderDB struct {
	db *pebble.DB
}

func OpenOrderDB(path string) (*OrderDB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open order db: %w", err)
	}
	return &OrderDB{db: db}, nil
}

func (s *OrderDB) Close() error { return s.db.Close() }

// keys: o:<event-id>
func kOrder(id string) []byte { return append([]byte("o:"), id...) }

// Put journals an order under its event id. Writes are synced; losing an
// accepted order on crash would silently re-admit its replay later.
func (s *OrderDB) Put(o order.Order) error {
	val, err := encodeGob(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	if err := s.db.Set(kOrder(o.ID), val, pebble.Sync); err != nil {
		return fmt.Errorf("journal order %s: %w", o.ID, err)
	}
	return nil
}

// Get returns the journaled order with the given event id.
func (s *OrderDB) Get(id string) (order.Order, bool, error) {
	val, closer, err := s.db.Get(kOrder(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return order.Order{}, false, nil
		}
		return order.Order{}, false, err
	}
	defer closer.Close()
	var out order.Order
	if err := decodeGob(val, &out); err != nil {
		return order.Order{}, false, fmt.Errorf("decode order %s: %w", id, err)
	}
	return out, true, nil
}

// LoadAll returns every journaled order. Iteration order is key order, not
// insertion order; callers replay through the store's dedup insert, which
// re-establishes its own ordering.
func (s *OrderDB) LoadAll() ([]order.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("o:"),
		UpperBound: []byte("o;"), // ';' is ':'+1
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o order.Order
		if err := decodeGob(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("decode journaled order: %w", err)
		}
		out = append(out, o)
	}
	return out, iter.Error()
}
