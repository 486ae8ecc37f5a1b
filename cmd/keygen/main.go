// Command keygen prints a fresh age identity for ENCRYPTION_KEY.
package main

import (
	"fmt"
	"log"

	"github.com/hugh/go-accounts/pkg/crypto"
)

func main() {
	identity, recipient, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	fmt.Printf("# public key: %s\n", recipient)
	fmt.Printf("ENCRYPTION_KEY=%s\n", identity)
}
