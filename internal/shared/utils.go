// Package shared provides utility functions for generating random secrets
// and wiping sensitive bytes from memory.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates size random bytes and returns them hex
// encoded, so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Passwords read from the terminal
// are wiped once they have been copied into the request.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
