// Package checksum derives content fingerprints used as entry ETags and in
// the change log.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fields fingerprints a record's fields. encoding/json sorts map keys, so
// equal field sets always produce the same digest.
func Fields(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return Sum(data)
}
