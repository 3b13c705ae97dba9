package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ordermesh/ordermesh/pkg/crypto"
)

// KindOrder is the event kind for order announcements. Subscriptions filter
// on it and every published order carries it; any other kind is rejected by
// the decoder.
const KindOrder = 38383

var (
	ErrBadSignature = errors.New("event signature does not match pubkey")
	ErrBadID        = errors.New("event id does not match content hash")
)

// Event is the generic tagged pub/sub envelope. All order fields travel in
// Tags; Content stays empty for order announcements.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Tag returns the first tag entry whose name matches, including the name
// element, or nil if absent.
func (e *Event) Tag(name string) []string {
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			return t
		}
	}
	return nil
}

// TagValue returns the first positional value of the first matching tag,
// or "" if the tag is absent or has no values.
func (e *Event) TagValue(name string) string {
	t := e.Tag(name)
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// TagValues returns all positional values of the first matching tag
// (the tag name itself is dropped). Absence yields nil.
func (e *Event) TagValues(name string) []string {
	t := e.Tag(name)
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// serialize produces the canonical form hashed into the event id:
// a JSON array [0, pubkey, created_at, kind, tags, content].
func (e *Event) serialize() ([]byte, error) {
	return json.Marshal([]any{0, e.PubKey, e.CreatedAt, e.Kind, e.Tags, e.Content})
}

// ComputeID returns the hex sha256 of the canonical serialization.
func (e *Event) ComputeID() (string, error) {
	b, err := e.serialize()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Sign stamps PubKey, ID and Sig using the node identity. CreatedAt must be
// set by the caller before signing (the transport-assigned timestamp).
func (e *Event) Sign(s *crypto.Signer) error {
	e.PubKey = s.PubKeyHex()
	id, err := e.ComputeID()
	if err != nil {
		return err
	}
	e.ID = id
	digest, _ := hex.DecodeString(id)
	sig, err := s.Sign(digest)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// Verify checks that ID is the content hash and Sig recovers to PubKey.
func (e *Event) Verify() error {
	id, err := e.ComputeID()
	if err != nil {
		return err
	}
	if id != e.ID {
		return ErrBadID
	}
	digest, err := hex.DecodeString(e.ID)
	if err != nil || len(digest) != 32 {
		return ErrBadID
	}
	sig, err := hex.DecodeString(e.Sig)
	if err != nil {
		return ErrBadSignature
	}
	if !crypto.VerifySignature(e.PubKey, digest, sig) {
		return ErrBadSignature
	}
	return nil
}

// Marshal encodes the event for the wire.
func Marshal(e *Event) ([]byte, error) { return json.Marshal(e) }

// Unmarshal decodes a raw wire message into an Event.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
