// keygen produces API keys for datamapd. With no arguments it generates a
// fresh random key; given an existing key it prints the SHA-256 hash to put
// in config.yaml.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/voxkit/datamap/internal/auth"
)

func main() {
	var apiKey string
	switch len(os.Args) {
	case 1:
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("generate key: %v", err)
		}
		apiKey = "dm_" + hex.EncodeToString(buf)
	case 2:
		apiKey = os.Args[1]
	default:
		fmt.Fprintln(os.Stderr, "Usage: keygen [api-key]")
		fmt.Fprintln(os.Stderr, "Generates a new API key (or hashes the one given) for config.yaml.")
		os.Exit(1)
	}

	fmt.Printf("API key:     %s\n", apiKey)
	fmt.Printf("SHA-256:     %s\n", auth.HashAPIKey(apiKey))
	fmt.Println("\nConfig snippet:")
	fmt.Printf("auth:\n")
	fmt.Printf("  api_keys:\n")
	fmt.Printf("    - key_hash: %q\n", auth.HashAPIKey(apiKey))
	fmt.Printf("      description: \"generated by keygen\"\n")
}
