// Command keygen prints a fresh base64-encoded 256-bit key for
// TWOFACTOR_ENCRYPTION_KEY.
package main

import (
	"fmt"
	"os"

	"github.com/dangtiendungai/Twibby/pkg/secrets"
)

func main() {
	key, err := secrets.GenerateKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate key:", err)
		os.Exit(1)
	}
	fmt.Println(key)
}
