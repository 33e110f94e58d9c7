// Command gensecret prints a random hex-encoded key suitable for the
// JWT_SECRET_KEY setting.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const secretLen = 32

func main() {
	key := make([]byte, secretLen)

	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "can't generate secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(key))
}
