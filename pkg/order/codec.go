package order

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/event"
)

var (
	// ErrWrongKind rejects events whose kind is not the order-announcement
	// constant. The event is skipped, never partially decoded.
	ErrWrongKind = errors.New("event kind is not an order announcement")

	// ErrInvalidEnum is returned in strict mode only, for unknown side or
	// status strings. The permissive default passes them through raw.
	ErrInvalidEnum = errors.New("unknown side or status value")
)

// Tag names of the canonical wire schema. Tag names and positional ordering
// are the interop contract with other implementations.
const (
	tagD           = "d"
	tagSide        = "k"
	tagFiat        = "f"
	tagStatus      = "s"
	tagAmount      = "amt"
	tagFiatAmount  = "fa"
	tagPayment     = "pm"
	tagPremium     = "premium"
	tagCommunityID = "community_id"
	tagSource      = "source"
	tagSources     = "y"
	tagNetwork     = "network"
	tagLayer       = "layer"
	tagExpiration  = "expiration"
	tagRating      = "rating"

	// Legacy revision tags, decode-only.
	tagName    = "name"
	tagGeohash = "g"
	tagBond    = "bond"
)

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Encode maps a NewOrder onto a kind-38383 tagged event. Every optional
// field has a total default, so encoding never fails. The d tag gets a
// fresh random token so revisions of the same logical order stay distinct
// under replaceable-event semantics. The caller still has to stamp
// CreatedAt and sign before publishing.
func Encode(o NewOrder) *event.Event {
	amount := orDefault(o.Amount, "0")
	source := ""
	if len(o.OriginSources) > 0 {
		source = o.OriginSources[0]
	}

	tags := [][]string{
		{tagD, uuid.NewString()},
		{tagSide, o.Side},
		{tagFiat, o.FiatCurrency},
		{tagStatus, o.Status},
		{tagAmount, amount},
		{tagFiatAmount, orDefault(o.MinAmount, "0"), orDefault(o.MaxAmount, "0")},
		append([]string{tagPayment}, o.PaymentMethods...),
		{tagPremium, orDefault(o.Premium, "0")},
		{tagCommunityID, o.CommunityID},
		{tagSource, source},
		append([]string{tagSources}, o.OriginSources...),
		{tagNetwork, orDefault(o.Network, DefaultNetwork)},
		{tagLayer, orDefault(o.Layer, DefaultLayer)},
		{tagExpiration, o.Expiration},
	}

	return &event.Event{
		Kind:    event.KindOrder,
		Tags:    tags,
		Content: "",
	}
}

// Decoder turns raw events back into Orders. It is defensive: a single
// malformed or missing tag degrades to its documented default instead of
// aborting the event, with the sole exception of a wrong kind.
//
// Strict turns unknown side/status strings into ErrInvalidEnum instead of
// passing them through unvalidated.
type Decoder struct {
	Log    *zap.SugaredLogger
	Strict bool
}

// Decode extracts an Order from ev. Envelope fields (id, author, timestamp)
// come from the event itself, never from tags.
func (d *Decoder) Decode(ev *event.Event) (Order, error) {
	if ev.Kind != event.KindOrder {
		return Order{}, fmt.Errorf("%w: got kind %d", ErrWrongKind, ev.Kind)
	}

	// Amount resolution: fa first value, else amt, else "0". maxAmount is
	// fa's second value, defaulting to the resolved amount.
	fa := ev.TagValues(tagFiatAmount)
	amount := ""
	if len(fa) > 0 {
		amount = fa[0]
	}
	amount = orDefault(amount, orDefault(ev.TagValue(tagAmount), "0"))
	maxAmount := amount
	if len(fa) > 1 && fa[1] != "" {
		maxAmount = fa[1]
	}

	o := Order{
		ID:             ev.ID,
		AuthorKey:      ev.PubKey,
		CreatedAt:      ev.CreatedAt,
		Side:           ev.TagValue(tagSide),
		FiatCurrency:   ev.TagValue(tagFiat),
		Amount:         amount,
		MinAmount:      amount,
		MaxAmount:      maxAmount,
		Premium:        orDefault(ev.TagValue(tagPremium), "0"),
		Status:         ev.TagValue(tagStatus),
		PaymentMethods: valuesOrEmpty(ev, tagPayment),
		OriginSources:  valuesOrEmpty(ev, tagSources),
		Network:        orDefault(ev.TagValue(tagNetwork), DefaultNetwork),
		Layer:          orDefault(ev.TagValue(tagLayer), DefaultLayer),
		Expiration:     ev.TagValue(tagExpiration),
		CommunityID:    ev.TagValue(tagCommunityID),
		Name:           ev.TagValue(tagName),
		Geohash:        ev.TagValue(tagGeohash),
		Bond:           orDefault(ev.TagValue(tagBond), "0"),
	}

	if d.Strict && (!ValidSide(o.Side) || !ValidStatus(o.Status)) {
		return Order{}, fmt.Errorf("%w: side=%q status=%q", ErrInvalidEnum, o.Side, o.Status)
	}

	o.Rating = d.decodeRating(ev)
	o.Trades = o.Rating.TotalReviews
	if o.Rating.MaxRate != 0 {
		o.CompletionPercent = o.Rating.TotalRating / o.Rating.MaxRate * 100
	}

	return o, nil
}

// decodeRating parses the rating tag's first value as a JSON record.
// Parse failure is a recoverable warning, never a decode failure.
func (d *Decoder) decodeRating(ev *event.Event) Rating {
	raw := ev.TagValue(tagRating)
	if raw == "" {
		return Rating{}
	}
	var r Rating
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		if d.Log != nil {
			d.Log.Warnw("malformed_rating_tag", "event", ev.ID, "err", err)
		}
		return Rating{}
	}
	return r
}

func valuesOrEmpty(ev *event.Event, name string) []string {
	if vs := ev.TagValues(name); vs != nil {
		return vs
	}
	return []string{}
}
