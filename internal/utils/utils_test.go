package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM\n"))
}

func TestLooksLikeEmail(t *testing.T) {
	for _, s := range []string{"a@x.com", "first.last+tag@sub.example.pt"} {
		require.True(t, LooksLikeEmail(s), s)
	}
	for _, s := range []string{"", "plain", "@x.com", "a@", "a b@x.com"} {
		require.False(t, LooksLikeEmail(s), s)
	}
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "ja***@example.com", MaskEmail("jane@example.com"))
	require.Equal(t, "***@x.com", MaskEmail("ab@x.com"))
	require.Equal(t, "***", MaskEmail("not-an-email"))

	masked := MaskEmail("jörg@example.de")
	require.Equal(t, "jö***@example.de", masked)
	require.True(t, utf8.ValidString(masked))
	require.Equal(t, "***@x.pt", MaskEmail("çé@x.pt"))
}
