// Package digest computes the content digests the Registrar uses to
// detect whether a catalogue project record has changed since the last
// run.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// OfValue returns hex(SHA-256) of v's canonical JSON serialisation
// (Go's encoding/json sorts map keys and struct fields are emitted in
// declaration order, giving a stable encoding across runs).
func OfValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for digest: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
