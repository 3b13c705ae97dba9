package order

// Side of an advertised exchange offer.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order lifecycle states. The wire carries the raw string; only matching
// cares about StatusPending.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusExpired    = "expired"
)

// Wire defaults for absent tags.
const (
	DefaultNetwork = "mainnet"
	DefaultLayer   = "lightning"
)

// Rating is the publisher's reputation summary as carried on the wire.
// Malformed or absent ratings decode to the zero value, never a failure.
type Rating struct {
	TotalReviews int     `json:"total_reviews"`
	TotalRating  float64 `json:"total_rating"`
	LastRating   float64 `json:"last_rating"`
	MaxRate      float64 `json:"max_rate"`
	MinRate      float64 `json:"min_rate"`
}

// Order is a peer's advertised exchange offer, decoded from an order
// announcement event. Amount, MinAmount, MaxAmount and Premium are
// decimal-formatted strings, never empty ("0" when absent). Orders are
// immutable once stored; a superseding event gets a new id.
type Order struct {
	// Transport envelope, never taken from tags.
	ID        string `json:"id"`
	AuthorKey string `json:"authorKey"`
	CreatedAt int64  `json:"createdAt"`

	Side           string   `json:"side"`
	FiatCurrency   string   `json:"fiatCurrency"`
	Amount         string   `json:"amount"`
	MinAmount      string   `json:"minAmount"`
	MaxAmount      string   `json:"maxAmount"`
	Premium        string   `json:"premium"`
	Status         string   `json:"status"`
	PaymentMethods []string `json:"paymentMethods"` // display order, significant
	OriginSources  []string `json:"originSources"`  // order insignificant
	Network        string   `json:"network"`
	Layer          string   `json:"layer"`
	Expiration     string   `json:"expiration"` // "" means no expiration
	CommunityID    string   `json:"communityId"`

	// Legacy tags from older schema revisions; decoded with defaults,
	// never re-emitted on encode.
	Name    string `json:"name,omitempty"`
	Geohash string `json:"geohash,omitempty"`
	Bond    string `json:"bond,omitempty"`

	Rating Rating `json:"rating"`

	// Derived from Rating at decode time, not round-tripped.
	Trades            int     `json:"trades"`
	CompletionPercent float64 `json:"completionPercent"`
}

// NewOrder is the publication input: an Order minus id, author and
// timestamp, which the transport assigns at publish time.
type NewOrder struct {
	Side           string   `json:"side"`
	FiatCurrency   string   `json:"fiatCurrency"`
	Amount         string   `json:"amount"`
	MinAmount      string   `json:"minAmount,omitempty"`
	MaxAmount      string   `json:"maxAmount,omitempty"`
	Premium        string   `json:"premium,omitempty"`
	Status         string   `json:"status"`
	PaymentMethods []string `json:"paymentMethods,omitempty"`
	OriginSources  []string `json:"originSources,omitempty"`
	Network        string   `json:"network,omitempty"`
	Layer          string   `json:"layer,omitempty"`
	Expiration     string   `json:"expiration,omitempty"`
	CommunityID    string   `json:"communityId,omitempty"`
}

// ValidSide reports whether s is a known order side. Orders with any other
// side are retained in the store but excluded from matching.
func ValidSide(s string) bool { return s == SideBuy || s == SideSell }

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}
