package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/crypto"
	"github.com/ordermesh/ordermesh/pkg/event"
	"github.com/ordermesh/ordermesh/pkg/order"
	"github.com/ordermesh/ordermesh/pkg/relay"
	"github.com/ordermesh/ordermesh/pkg/storage"
	"github.com/ordermesh/ordermesh/pkg/store"
)

func signedOrderBytes(t *testing.T, signer *crypto.Signer, o order.NewOrder) []byte {
	t.Helper()
	ev := order.Encode(o)
	ev.CreatedAt = time.Now().Unix()
	require.NoError(t, ev.Sign(signer))
	data, err := event.Marshal(ev)
	require.NoError(t, err)
	return data
}

func newPipeline(t *testing.T, journal *storage.OrderDB) (*relay.Pipeline, *store.Store) {
	t.Helper()
	log := zap.NewNop().Sugar()
	st := store.New()
	dec := &order.Decoder{Log: log}
	return relay.NewPipeline(log, dec, st, journal), st
}

// Full inbound path: raw bytes -> verify -> decode -> dedup -> match.
func TestPipelineAcceptsAndMatches(t *testing.T) {
	pipe, st := newPipeline(t, nil)
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)

	var gotOrders []order.Order
	var gotMatches [][]order.Order
	pipe.SetHandlers(relay.Handlers{
		OnOrder: func(o order.Order) { gotOrders = append(gotOrders, o) },
		OnMatch: func(o order.Order, m []order.Order) { gotMatches = append(gotMatches, m) },
	})

	sellRaw := signedOrderBytes(t, signer, order.NewOrder{
		Side: order.SideSell, FiatCurrency: "USD", Amount: "100", Premium: "3", Status: order.StatusPending,
	})
	buyRaw := signedOrderBytes(t, signer, order.NewOrder{
		Side: order.SideBuy, FiatCurrency: "USD", Amount: "100", Premium: "5", Status: order.StatusPending,
	})

	pipe.HandleRaw(sellRaw)
	require.Equal(t, 1, st.Len())
	require.Len(t, gotOrders, 1)
	require.Empty(t, gotMatches, "first order has no counter-offer")

	pipe.HandleRaw(buyRaw)
	require.Equal(t, 2, st.Len())
	require.Len(t, gotMatches, 1, "buy at premium 5 crosses sell at 3")
	require.Equal(t, gotOrders[0].ID, gotMatches[0][0].ID)

	stats := pipe.Stats()
	require.Equal(t, uint64(2), stats.Received)
	require.Equal(t, uint64(2), stats.Accepted)
}

// Relay replay and reconnects deliver the same event again; the store
// absorbs it exactly once.
func TestPipelineDedupReplay(t *testing.T) {
	pipe, st := newPipeline(t, nil)
	signer, _ := crypto.GenerateKey()

	raw := signedOrderBytes(t, signer, order.NewOrder{
		Side: order.SideSell, FiatCurrency: "EUR", Amount: "50", Premium: "1", Status: order.StatusPending,
	})

	var orderEvents int
	pipe.SetHandlers(relay.Handlers{OnOrder: func(order.Order) { orderEvents++ }})

	for i := 0; i < 3; i++ {
		pipe.HandleRaw(raw)
	}

	require.Equal(t, 1, st.Len())
	require.Equal(t, 1, orderEvents)
	stats := pipe.Stats()
	require.Equal(t, uint64(1), stats.Accepted)
	require.Equal(t, uint64(2), stats.Duplicates)
}

func TestPipelineRejectsBadInput(t *testing.T) {
	pipe, st := newPipeline(t, nil)
	signer, _ := crypto.GenerateKey()

	// Not JSON at all.
	pipe.HandleRaw([]byte("not an event"))

	// Wrong kind, correctly signed.
	wrongKind := &event.Event{Kind: 1, CreatedAt: 1, Tags: [][]string{{"k", "sell"}}}
	require.NoError(t, wrongKind.Sign(signer))
	data, _ := event.Marshal(wrongKind)
	pipe.HandleRaw(data)

	// Right kind, tampered after signing.
	tampered := order.Encode(order.NewOrder{Side: order.SideSell, FiatCurrency: "USD", Status: order.StatusPending})
	tampered.CreatedAt = 1
	require.NoError(t, tampered.Sign(signer))
	tampered.Tags = append(tampered.Tags, []string{"premium", "999"})
	data, _ = event.Marshal(tampered)
	pipe.HandleRaw(data)

	require.Equal(t, 0, st.Len())
	stats := pipe.Stats()
	require.Equal(t, uint64(3), stats.Received)
	require.Equal(t, uint64(3), stats.Rejected)
}

// A restarted node replays its journal and keeps deduplicating against it.
func TestPipelineJournalReplay(t *testing.T) {
	dir := t.TempDir()
	signer, _ := crypto.GenerateKey()
	raw := signedOrderBytes(t, signer, order.NewOrder{
		Side: order.SideBuy, FiatCurrency: "USD", Amount: "10", Premium: "2", Status: order.StatusPending,
	})

	journal, err := storage.OpenOrderDB(dir)
	require.NoError(t, err)
	pipe, st := newPipeline(t, journal)
	pipe.HandleRaw(raw)
	require.Equal(t, 1, st.Len())
	require.NoError(t, journal.Close())

	// Restart: fresh store, same journal.
	journal2, err := storage.OpenOrderDB(dir)
	require.NoError(t, err)
	defer journal2.Close()
	pipe2, st2 := newPipeline(t, journal2)

	replayed, err := journal2.LoadAll()
	require.NoError(t, err)
	for _, o := range replayed {
		st2.TryInsert(o)
	}
	require.Equal(t, 1, st2.Len())

	// The same event arriving again after restart is a duplicate.
	pipe2.HandleRaw(raw)
	require.Equal(t, 1, st2.Len())
	require.Equal(t, uint64(1), pipe2.Stats().Duplicates)
}
