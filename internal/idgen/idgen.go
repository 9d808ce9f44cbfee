// Package idgen generates the random identifiers used across Churnsight:
// detections ("det_"), churn signals ("sig_"), risk scores ("risk_"),
// bus events ("evt_"), and webhook subscriptions ("wh_").
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// entropyBytes is the random payload behind a prefixed ID (24 hex chars).
const entropyBytes = 12

// New generates a UUID-like random ID.
// Format: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func New() string {
	b := randomBytes(16)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// WithPrefix generates a prefixed random ID, e.g. WithPrefix("det_").
func WithPrefix(prefix string) string {
	return prefix + hex.EncodeToString(randomBytes(entropyBytes))
}

// Hex generates a random hex string of the given byte length, used for
// webhook signing secrets.
func Hex(numBytes int) string {
	return hex.EncodeToString(randomBytes(numBytes))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}
