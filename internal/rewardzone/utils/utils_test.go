package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		require.Len(t, code, ReferralCodeLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(referralCodeAlphabet, c), "unexpected character %q", c)
		}
		seen[code] = true
	}
	// 100 draws from a 36^8 space should not collide.
	require.Len(t, seen, 100)
}

func TestIsNumeric(t *testing.T) {
	require.True(t, IsNumeric("12345"))
	require.False(t, IsNumeric("12a45"))
	require.False(t, IsNumeric(""))
}
