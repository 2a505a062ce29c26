// Package contenthash computes the SHA-256 fingerprints used for capture
// deduplication and the ledger audit trail.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Size is the length of a rendered fingerprint.
const Size = sha256.Size * 2

// Fingerprint returns the lowercase hex SHA-256 digest of b.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two fingerprints name the same content. An empty
// fingerprint never matches, so a fresh dedup state admits everything.
func Equal(a, b string) bool {
	return a != "" && a == b
}

// FingerprintFile streams the file at path through SHA-256.
func FingerprintFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", n, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
