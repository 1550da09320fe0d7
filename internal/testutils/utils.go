package testutils

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// StorePath returns a path inside a per-test temporary directory where no
// store exists yet.
func StorePath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "store")
}

func RandomBytes(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// RandomKey returns a printable random key with the given prefix.
func RandomKey(t testing.TB, prefix string) []byte {
	t.Helper()
	return []byte(prefix + hex.EncodeToString(RandomBytes(t, 8)))
}

// Strings converts byte slices for readable assertions.
func Strings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}
