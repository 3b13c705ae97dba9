package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/crypto"
	"github.com/ordermesh/ordermesh/pkg/event"
	"github.com/ordermesh/ordermesh/pkg/match"
	"github.com/ordermesh/ordermesh/pkg/order"
	"github.com/ordermesh/ordermesh/pkg/rates"
	"github.com/ordermesh/ordermesh/pkg/relay"
	"github.com/ordermesh/ordermesh/pkg/store"
)

// Publisher is the slice of the relay the server needs for outbound orders.
type Publisher interface {
	Publish(ctx context.Context, ev *event.Event) error
}

// Server exposes the order store, derived prices and match notifications to
// the UI over REST and WebSocket.
type Server struct {
	log    *zap.SugaredLogger
	store  *store.Store
	pipe   *relay.Pipeline
	pub    Publisher
	signer *crypto.Signer
	rates  rates.Provider // nil disables price derivation
	router *mux.Router
	hub    *Hub
}

func NewServer(log *zap.SugaredLogger, st *store.Store, pipe *relay.Pipeline, pub Publisher, signer *crypto.Signer, rp rates.Provider) *Server {
	s := &Server{
		log:    log,
		store:  st,
		pipe:   pipe,
		pub:    pub,
		signer: signer,
		rates:  rp,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders", s.handlePublishOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/matches", s.handleGetMatches).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wired HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Snapshot()
	views := make([]OrderView, len(snapshot))
	marketByFiat := s.fetchRates(r.Context(), snapshot)
	for i, o := range snapshot {
		views[i] = s.view(o, marketByFiat)
	}
	respondJSON(w, views)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, ok := s.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}
	respondJSON(w, s.view(o, s.fetchRates(r.Context(), []order.Order{o})))
}

func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, ok := s.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}
	matches := match.FindMatches(o, s.store.Snapshot())
	if matches == nil {
		matches = []order.Order{}
	}
	respondJSON(w, matches)
}

func (s *Server) handlePublishOrder(w http.ResponseWriter, r *http.Request) {
	var req order.NewOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !order.ValidSide(req.Side) {
		respondError(w, http.StatusBadRequest, "invalid side", req.Side)
		return
	}
	if req.Status == "" {
		req.Status = order.StatusPending
	}

	ev := order.Encode(req)
	ev.CreatedAt = time.Now().Unix()
	if err := ev.Sign(s.signer); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to sign event", err.Error())
		return
	}
	if err := s.pub.Publish(r.Context(), ev); err != nil {
		respondError(w, http.StatusBadGateway, "publish failed", err.Error())
		return
	}

	s.log.Infow("order_published", "event", ev.ID, "side", req.Side, "fiat", req.FiatCurrency)
	respondJSON(w, PublishOrderResponse{Status: "published", EventID: ev.ID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.pipe.Stats()
	respondJSON(w, StatusResponse{
		Orders:     s.store.Len(),
		Received:   st.Received,
		Accepted:   st.Accepted,
		Duplicates: st.Duplicates,
		Rejected:   st.Rejected,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast hooks (wired to the relay pipeline)
// ==============================

// BroadcastOrder pushes an accepted order to "orders" subscribers.
func (s *Server) BroadcastOrder(o order.Order) {
	view := s.view(o, s.fetchRates(context.Background(), []order.Order{o}))
	s.hub.BroadcastToChannel("orders", OrderUpdate{Type: "order", Order: view})
}

// BroadcastMatch pushes a match result to "matches" subscribers.
func (s *Server) BroadcastMatch(o order.Order, matches []order.Order) {
	s.hub.BroadcastToChannel("matches", MatchUpdate{Type: "match", Order: o, Matches: matches})
}

// ==============================
// Helpers
// ==============================

// fetchRates resolves the market rate once per distinct fiat currency.
// Rate failures leave the fiat out of the map; views then omit the price.
func (s *Server) fetchRates(ctx context.Context, orders []order.Order) map[string]float64 {
	if s.rates == nil {
		return nil
	}
	out := make(map[string]float64)
	for _, o := range orders {
		if _, seen := out[o.FiatCurrency]; seen {
			continue
		}
		price, err := s.rates.MarketPrice(ctx, o.FiatCurrency)
		if err != nil {
			s.log.Debugw("market_rate_unavailable", "fiat", o.FiatCurrency, "err", err)
			continue
		}
		out[o.FiatCurrency] = price
	}
	return out
}

func (s *Server) view(o order.Order, marketByFiat map[string]float64) OrderView {
	v := OrderView{Order: o}
	if market, ok := marketByFiat[o.FiatCurrency]; ok {
		if price, ok := rates.DerivePrice(market, o.Premium); ok {
			v.Price = price
		}
	}
	return v
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
