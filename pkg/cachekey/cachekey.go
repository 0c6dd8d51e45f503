// Package cachekey derives fixed-length cache keys so raw query text never
// reaches log lines that print keys.
package cachekey

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// ForQuery derives the key for a response or search entry from its business
// scope and the normalized query text.
func ForQuery(scopeID, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return hash(scopeID + "|" + normalized)
}

// ForContent derives the key for an embedding entry from the raw text content.
func ForContent(content string) string {
	return hash(content)
}

func hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
