package tabular

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Row is one normalized spreadsheet line, keyed by trimmed header.
type Row map[string]string

// Get returns the trimmed value for a column, "" when absent.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// First returns the first non-empty value among candidate columns,
// tried in order.
func (r Row) First(keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Empty reports whether every cell in the row is blank.
func (r Row) Empty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Hash returns a stable 32-hex-char content address for the row.
// Marshaling a map sorts its keys, so the same cell contents always
// hash identically regardless of header order in the source file.
func (r Row) Hash() string {
	raw, _ := json.Marshal(r)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:32]
}
