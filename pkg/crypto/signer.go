package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the node's secp256k1 identity key.
// The public identity on the wire is the compressed public key, hex-encoded
// (66 chars). Only outbound event publication needs a Signer; decoding does not.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	pubHex     string
}

// GenerateKey creates a new random secp256k1 identity.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newSigner(privateKey), nil
}

// FromPrivateKeyHex restores a Signer from a hex-encoded private key
// (64 hex chars, with or without 0x prefix).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newSigner(privateKey), nil
}

func newSigner(pk *ecdsa.PrivateKey) *Signer {
	return &Signer{
		privateKey: pk,
		pubHex:     fmt.Sprintf("%x", crypto.CompressPubkey(&pk.PublicKey)),
	}
}

// PubKeyHex returns the compressed public key as hex. This is the authorKey
// carried on published events.
func (s *Signer) PubKeyHex() string { return s.pubHex }

// PrivateKeyHex returns the private key as hex (no 0x prefix).
// WARNING: keep this secret, never log it at info level.
func (s *Signer) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// Sign signs a 32-byte digest and returns the signature in [R || S || V]
// format (65 bytes).
func (s *Signer) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// RecoverPubKeyHex recovers the compressed-hex public key that produced
// signature over hash.
func RecoverPubKeyHex(hash []byte, signature []byte) (string, error) {
	if len(signature) != 65 {
		return "", fmt.Errorf("invalid signature length: %d", len(signature))
	}
	if len(hash) != 32 {
		return "", fmt.Errorf("invalid hash length: %d", len(hash))
	}
	pub, err := crypto.SigToPub(hash, signature)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}
	return fmt.Sprintf("%x", crypto.CompressPubkey(pub)), nil
}

// VerifySignature reports whether signature over hash was produced by the
// key behind pubHex.
func VerifySignature(pubHex string, hash []byte, signature []byte) bool {
	recovered, err := RecoverPubKeyHex(hash, signature)
	if err != nil {
		return false
	}
	return recovered == pubHex
}
