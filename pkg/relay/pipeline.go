package relay

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/event"
	"github.com/ordermesh/ordermesh/pkg/match"
	"github.com/ordermesh/ordermesh/pkg/order"
	"github.com/ordermesh/ordermesh/pkg/store"
	"github.com/ordermesh/ordermesh/pkg/storage"
)

// Handlers are fired by the pipeline after state changes. OnOrder runs for
// every newly accepted order, OnMatch only when the matcher found
// counter-offers for it.
type Handlers struct {
	OnOrder func(order.Order)
	OnMatch func(order.Order, []order.Order)
}

// Stats counts pipeline outcomes, for the status endpoint and progress logs.
type Stats struct {
	Received   uint64
	Accepted   uint64
	Duplicates uint64
	Rejected   uint64
}

// Pipeline is the sequential inbound path: verify -> decode -> dedup-insert
// -> journal -> match. One event is fully handled before the next; the
// store's insert lock covers the multi-subscription case.
type Pipeline struct {
	log     *zap.SugaredLogger
	dec     *order.Decoder
	store   *store.Store
	journal *storage.OrderDB // nil disables journaling

	muH      sync.RWMutex
	handlers Handlers

	muStats sync.Mutex
	stats   Stats
}

func NewPipeline(log *zap.SugaredLogger, dec *order.Decoder, st *store.Store, journal *storage.OrderDB) *Pipeline {
	return &Pipeline{log: log, dec: dec, store: st, journal: journal}
}

func (p *Pipeline) SetHandlers(h Handlers) {
	p.muH.Lock()
	p.handlers = h
	p.muH.Unlock()
}

// Stats returns a copy of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.muStats.Lock()
	defer p.muStats.Unlock()
	return p.stats
}

func (p *Pipeline) count(f func(*Stats)) {
	p.muStats.Lock()
	f(&p.stats)
	p.muStats.Unlock()
}

// HandleRaw processes one raw wire message. Malformed, unverifiable,
// wrong-kind and duplicate deliveries are absorbed here: they are counted
// and logged, never returned as fatal errors to the subscription loop.
func (p *Pipeline) HandleRaw(data []byte) {
	p.count(func(s *Stats) { s.Received++ })

	ev, err := event.Unmarshal(data)
	if err != nil {
		p.count(func(s *Stats) { s.Rejected++ })
		if p.log != nil {
			p.log.Debugw("event_unmarshal_failed", "err", err)
		}
		return
	}
	if err := ev.Verify(); err != nil {
		p.count(func(s *Stats) { s.Rejected++ })
		if p.log != nil {
			p.log.Warnw("event_verify_failed", "event", ev.ID, "err", err)
		}
		return
	}

	o, err := p.dec.Decode(ev)
	if err != nil {
		p.count(func(s *Stats) { s.Rejected++ })
		if p.log != nil && !errors.Is(err, order.ErrWrongKind) {
			p.log.Warnw("order_decode_failed", "event", ev.ID, "err", err)
		}
		return
	}

	p.Accept(o)
}

// Accept runs the store/journal/match tail of the pipeline for an already
// decoded order. Boot-time journal replay enters here directly.
func (p *Pipeline) Accept(o order.Order) {
	if !p.store.TryInsert(o) {
		p.count(func(s *Stats) { s.Duplicates++ })
		return
	}
	p.count(func(s *Stats) { s.Accepted++ })

	if p.journal != nil {
		if err := p.journal.Put(o); err != nil && p.log != nil {
			p.log.Errorw("order_journal_failed", "order", o.ID, "err", err)
		}
	}

	matches := match.FindMatches(o, p.store.Snapshot())

	p.muH.RLock()
	h := p.handlers
	p.muH.RUnlock()
	if h.OnOrder != nil {
		h.OnOrder(o)
	}
	if h.OnMatch != nil && len(matches) > 0 {
		h.OnMatch(o, matches)
	}

	if p.log != nil {
		p.log.Infow("order_accepted",
			"order", o.ID,
			"side", o.Side,
			"fiat", o.FiatCurrency,
			"premium", o.Premium,
			"matches", len(matches))
	}
}
