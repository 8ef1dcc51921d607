// Package util holds small helpers shared by the store, the pipeline and
// the vendor adapters: chunking, record indexing and canonical-JSON
// hashing.
package util

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Chunk splits a slice into chunks of at most n elements. The last chunk
// may be shorter. n must be positive.
func Chunk[T any](items []T, n int) [][]T {
	return lo.Chunk(items, n)
}

// IndexBy indexes items by a derived key. Duplicate keys are accepted and
// the later occurrence wins, matching the pipeline's last-wins tie-break.
func IndexBy[T any](items []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, it := range items {
		out[key(it)] = it
	}
	return out
}

// IndexByStrict indexes items by a derived key and fails on duplicates.
func IndexByStrict[T any](items []T, key func(T) string) (map[string]T, error) {
	out := make(map[string]T, len(items))
	for _, it := range items {
		k := key(it)
		if _, seen := out[k]; seen {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		out[k] = it
	}
	return out, nil
}

// JSONHash returns the hex SHA-1 of the canonical JSON encoding of the
// arguments. encoding/json sorts map keys, so the digest is stable for a
// given logical value. Used for disk-cache keys and row hashing.
func JSONHash(args ...any) (string, error) {
	h := sha1.New()
	enc := json.NewEncoder(h)
	for _, a := range args {
		if err := enc.Encode(a); err != nil {
			return "", fmt.Errorf("encoding hash input: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Slugify lowercases a name and collapses runs of non-alphanumeric
// characters into single underscores, e.g. "File Compression" →
// "file_compression".
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// Ptr returns a pointer to v. Adapters use it for the many nullable
// record fields.
func Ptr[T any](v T) *T { return &v }
