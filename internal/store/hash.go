package store

import (
	"crypto/sha256"
	"fmt"
)

// HashContent returns the hex SHA-256 of a file's content, the key used for
// incremental runs.
func HashContent(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
