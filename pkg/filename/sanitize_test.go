package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"illegal chars become spaces", `a/b:c*d`, "a b c d"},
		{"all reserved", `x<>:"/\|?*y`, "x y"},
		{"control chars", "a\x00b\x1fc", "a b c"},
		{"whitespace collapsed", "  hello \t\n  world  ", "hello world"},
		{"unicode spaces collapsed", "a\u00a0\u00a0\u00a0b\u2003\u2003c", "a b c"},
		{"separators and bom", "\ufeffa\u2028b\u3000\vc", "a b c"},
		{"empty uses default", "", "video"},
		{"only illegal", "///", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitize_TruncatesTo120Characters(t *testing.T) {
	got := Sanitize(strings.Repeat("é", 200))
	require.Equal(t, 120, len([]rune(got)))

	got = Sanitize(strings.Repeat("ab", 100))
	require.Len(t, got, 120)
}

func TestSanitize_NormalizesToNFC(t *testing.T) {
	// "e" + combining acute accent composes to a single rune.
	require.Equal(t, "caf\u00e9", Sanitize("cafe\u0301"))
}

func TestExtensionFromURL(t *testing.T) {
	require.Equal(t, "webm", ExtensionFromURL("https://x/y/v.WEBM?x=1", "mp4"))
	require.Equal(t, "m4a", ExtensionFromURL("https://x/y/audio.m4a", "mp4"))
	require.Equal(t, "mp4", ExtensionFromURL("https://x/videoplayback?mime=video%2Fmp4", "mp4"))
	require.Equal(t, "m4a", ExtensionFromURL("https://x/y/file.toolongext", "m4a"))
	require.Equal(t, "mp4", ExtensionFromURL("https://x/y/file.a", "mp4"))
	require.Equal(t, "mp4", ExtensionFromURL("://bad url", "mp4"))
}
