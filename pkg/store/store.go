package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/order"
	"github.com/ordermesh/ordermesh/pkg/util"
)

// Store is the append-only, id-deduplicated collection of decoded orders.
// It is the sole dedup point: relay replay and reconnects funnel every
// delivery through TryInsert. Inserts are mutex-serialized so multiple
// subscription feeds cannot both win with the same id.
type Store struct {
	mu     sync.RWMutex
	orders []order.Order
	byID   map[string]struct{} // id -> exists, O(1) dedup check
}

func New() *Store {
	return &Store{byID: make(map[string]struct{})}
}

// TryInsert appends o and returns true only if no existing entry shares its
// id. Returns false with no mutation otherwise. Field contents are not
// validated here; the store holds whatever the decoder produced.
func (s *Store) TryInsert(o order.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[o.ID]; ok {
		return false
	}
	s.byID[o.ID] = struct{}{}
	s.orders = append(s.orders, o)
	return true
}

// Get returns the order with the given id.
func (s *Store) Get(id string) (order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[id]; !ok {
		return order.Order{}, false
	}
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return order.Order{}, false
}

// Snapshot returns all orders in insertion order. The returned slice is a
// copy; callers may hold it across inserts.
func (s *Store) Snapshot() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// SweepExpired drops orders whose expiration timestamp is at or before now
// and returns how many were removed. Orders without an expiration, or with
// one that does not parse as unix seconds, are never swept.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.orders[:0]
	removed := 0
	for _, o := range s.orders {
		if expired(o, now) {
			delete(s.byID, o.ID)
			removed++
			continue
		}
		kept = append(kept, o)
	}
	s.orders = kept
	return removed
}

func expired(o order.Order, now time.Time) bool {
	if o.Expiration == "" {
		return false
	}
	ts, err := strconv.ParseInt(o.Expiration, 10, 64)
	if err != nil {
		return false
	}
	return ts <= now.Unix()
}

// RunSweeper periodically sweeps expired orders until ctx is done. Gated by
// configuration; the permissive default keeps every order forever.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, clock util.Clock, log *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-clock.After(interval):
			if n := s.SweepExpired(clock.Now()); n > 0 && log != nil {
				log.Infow("expired_orders_swept", "removed", n, "remaining", s.Len())
			}
		}
	}
}
