package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
// Used for audit log public ids.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NextInt returns one past the largest id in ids, starting at 1.
// Series and investor ids are small integers allocated inside the dataset
// transaction, so max+1 never collides.
func NextInt[T any](items []T, idOf func(T) int64) int64 {
	var max int64
	for _, it := range items {
		if v := idOf(it); v > max {
			max = v
		}
	}
	return max + 1
}
