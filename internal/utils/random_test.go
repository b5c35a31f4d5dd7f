package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		nonce, err := GenerateNonce()
		require.NoError(t, err)
		require.Len(t, nonce, 16)
		require.True(t, IsLowerHex(nonce))
		seen[nonce] = struct{}{}
	}
	require.Len(t, seen, 64)
}

func TestIsLowerHex(t *testing.T) {
	require.True(t, IsLowerHex("0123abcd"))
	require.False(t, IsLowerHex(""))
	require.False(t, IsLowerHex("0123ABCD"))
	require.False(t, IsLowerHex("0123%_cd"))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
