package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ordermesh/ordermesh/params"
	"github.com/ordermesh/ordermesh/pkg/api"
	"github.com/ordermesh/ordermesh/pkg/crypto"
	"github.com/ordermesh/ordermesh/pkg/order"
	"github.com/ordermesh/ordermesh/pkg/rates"
	"github.com/ordermesh/ordermesh/pkg/relay"
	"github.com/ordermesh/ordermesh/pkg/storage"
	"github.com/ordermesh/ordermesh/pkg/store"
	"github.com/ordermesh/ordermesh/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---- Identity ----
	var signer *crypto.Signer
	if cfg.Node.Identity != "" {
		signer, err = crypto.FromPrivateKeyHex(cfg.Node.Identity)
		if err != nil {
			sugar.Fatalw("identity_key_invalid", "err", err)
		}
	} else {
		signer, err = crypto.GenerateKey()
		if err != nil {
			sugar.Fatalw("identity_generate_failed", "err", err)
		}
		sugar.Infow("identity_generated", "pubkey", signer.PubKeyHex())
	}

	// ---- Journal + store ----
	journal, err := storage.OpenOrderDB(filepath.Join(cfg.Node.DataDir, "orders"))
	if err != nil {
		sugar.Fatalw("order_db_open_failed", "err", err)
	}
	defer journal.Close()

	st := store.New()
	dec := &order.Decoder{Log: sugar, Strict: cfg.Node.StrictValidation}
	pipe := relay.NewPipeline(sugar, dec, st, journal)

	// Replay the journal so a restarted node keeps the orders it has seen.
	replayed, err := journal.LoadAll()
	if err != nil {
		sugar.Fatalw("order_db_load_failed", "err", err)
	}
	for _, o := range replayed {
		st.TryInsert(o)
	}
	sugar.Infow("journal_replayed", "orders", st.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Relay ----
	svc, err := relay.NewService(ctx, relay.Config{
		ListenAddr: cfg.Relay.ListenAddr,
		Bootstrap:  cfg.Relay.Bootstrap,
		Topic:      cfg.Relay.Topic,
		Logger:     sugar,
	}, pipe)
	if err != nil {
		sugar.Fatalw("relay_init_failed", "err", err)
	}
	defer svc.Close()

	// ---- Market rates (optional) ----
	var rateProvider rates.Provider
	if cfg.Rates.URL != "" {
		source := rates.NewHTTPProvider(cfg.Rates.URL)
		if cfg.Rates.RedisAddr != "" {
			cache := rates.NewRedisCache(cfg.Rates.RedisAddr, source, cfg.Rates.TTL, sugar)
			defer cache.Close()
			rateProvider = cache
			sugar.Infow("rates_enabled", "url", cfg.Rates.URL, "cache", "redis")
		} else {
			rateProvider = rates.NewMemoryCache(source, cfg.Rates.TTL, util.RealClock{})
			sugar.Infow("rates_enabled", "url", cfg.Rates.URL, "cache", "memory")
		}
	}

	// ---- API server ----
	apiServer := api.NewServer(sugar, st, pipe, svc, signer, rateProvider)

	// Push accepted orders and matches to WebSocket subscribers.
	pipe.SetHandlers(relay.Handlers{
		OnOrder: apiServer.BroadcastOrder,
		OnMatch: apiServer.BroadcastMatch,
	})

	go func() {
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Expiry sweep (optional) ----
	if cfg.Node.ExpireSweep {
		sugar.Infow("expire_sweep_enabled", "interval_ms", cfg.Node.SweepInterval.Milliseconds())
		go st.RunSweeper(ctx, cfg.Node.SweepInterval, util.RealClock{}, sugar)
	}

	// ---- Subscription loop ----
	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			sugar.Fatalw("relay_run_failed", "err", err)
		}
	}()

	sugar.Infow("node_started",
		"pubkey", signer.PubKeyHex(),
		"api", cfg.Node.APIAddr,
		"strict_validation", cfg.Node.StrictValidation)

	// Progress logging loop
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := pipe.Stats()
			sugar.Infow("node_progress",
				"orders", st.Len(),
				"received", stats.Received,
				"accepted", stats.Accepted,
				"duplicates", stats.Duplicates,
				"rejected", stats.Rejected)
		}
	}
}
