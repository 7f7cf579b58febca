// Package hash fingerprints fetched page bodies so downstream consumers
// can spot duplicate content across URLs without comparing full HTML.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Content returns the hex SHA-256 digest of a page body. An empty body
// hashes to the empty string so absent content never collides with real
// pages.
func Content(body string) string {
	if body == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
