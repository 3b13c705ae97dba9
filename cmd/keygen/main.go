// keygen prints a fresh node identity: the private key to export as
// IDENTITY_KEY and the public key peers will see on published orders.
package main

import (
	"fmt"
	"log"

	"github.com/ordermesh/ordermesh/pkg/crypto"
)

func main() {
	signer, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	fmt.Printf("IDENTITY_KEY=%s\n", signer.PrivateKeyHex())
	fmt.Printf("pubkey=%s\n", signer.PubKeyHex())
}
