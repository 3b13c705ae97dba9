package api

import "github.com/ordermesh/ordermesh/pkg/order"

// API payload types for REST endpoints and WebSocket messages.

// OrderView is an Order plus the price derived from the current market
// rate. Price is empty when no rate is available; only premium is
// authoritative on the wire.
type OrderView struct {
	order.Order
	Price string `json:"price,omitempty"`
}

// StatusResponse reports node-level counters.
type StatusResponse struct {
	Orders     int    `json:"orders"`
	Received   uint64 `json:"received"`
	Accepted   uint64 `json:"accepted"`
	Duplicates uint64 `json:"duplicates"`
	Rejected   uint64 `json:"rejected"`
}

// PublishOrderResponse is returned from POST /api/v1/orders.
type PublishOrderResponse struct {
	Status  string `json:"status"` // "published", "rejected"
	EventID string `json:"eventId"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket message types
// ==============================

// WSSubscribeRequest is sent by a client to manage channel subscriptions.
// Channels: "orders", "matches".
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// OrderUpdate is pushed on the "orders" channel for every accepted order,
// in store insertion order.
type OrderUpdate struct {
	Type  string    `json:"type"` // "order"
	Order OrderView `json:"order"`
}

// MatchUpdate is pushed on the "matches" channel when a newly accepted
// order crosses existing counter-offers.
type MatchUpdate struct {
	Type    string        `json:"type"` // "match"
	Order   order.Order   `json:"order"`
	Matches []order.Order `json:"matches"`
}
