package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
)

// Dir returns the stable download directory for a URL and item index: the same
// pair always maps to the same directory, different pairs never share one.
// Concurrent fetches of one pair are possible, so the fetcher creates a
// per-invocation run directory below it.
// index < 0 means the default (whole URL / first entry) download.
func Dir(downloadDir, sourceURL string, index int) string {
	name := sanitizeID(sourceURL)
	if index >= 0 {
		name += "-" + strconv.Itoa(index)
	}
	return filepath.Join(downloadDir, name)
}

func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:12])
}
