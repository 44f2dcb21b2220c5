package popup

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/browserutility/internal/actions"
)

type recorder struct {
	text string
	err  error
}

func (r *recorder) WriteText(text string) error {
	if r.err != nil {
		return r.err
	}
	r.text = text
	return nil
}

func TestButtons(t *testing.T) {
	cases := []struct {
		url           string
		transcript, x bool
	}{
		{"https://www.youtube.com/watch?v=abc", true, false},
		{"HTTP://YOUTUBE.COM/watch?v=abc", true, false},
		{"https://m.youtube.com/watch?v=abc", false, false},
		{"https://x.com/home", false, true},
		{"https://www.x.com/a/status/1", false, true},
		{"https://x.com", false, false},
		{"https://netflix.com/", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		b := Buttons(tc.url)
		require.Equal(t, tc.transcript, b[0].Enabled, tc.url)
		require.Equal(t, tc.x, b[1].Enabled, tc.url)
		require.True(t, b[2].Enabled)
		require.Equal(t, "Available on all pages.", b[2].Title)
	}

	ok, why := Allowed(actions.CopyYouTubeTranscript, "https://example.com")
	require.False(t, ok)
	require.Equal(t, "Available on YouTube watch pages.", why)

	ok, why = Allowed(actions.DraftXReply, "https://example.com")
	require.False(t, ok)
	require.Equal(t, "Available on x.com pages.", why)

	ok, why = Allowed(actions.DraftXReply, "https://x.com/home")
	require.True(t, ok)
	require.Empty(t, why)
}

func TestRender(t *testing.T) {
	t.Run("no response", func(t *testing.T) {
		s := Render(nil, &recorder{})
		require.True(t, s.IsError)
		require.Equal(t, "No response from page. Reload and try again.", s.Message)
	})

	t.Run("error", func(t *testing.T) {
		require.Equal(t, "boom", Render(&actions.Response{Error: "boom"}, &recorder{}).Message)
		require.Equal(t, "Action failed.", Render(&actions.Response{}, &recorder{}).Message)
	})

	t.Run("transcript", func(t *testing.T) {
		r := &recorder{}
		s := Render(&actions.Response{OK: true, Transcript: "héllo\nworld"}, r)
		require.Equal(t, "Transcript copied (11 chars).", s.Message)
		require.Equal(t, "héllo\nworld", r.text)
	})

	t.Run("draft", func(t *testing.T) {
		require.Equal(t, "Draft copied to clipboard.", Render(&actions.Response{OK: true, Draft: "hi"}, &recorder{}).Message)
		s := Render(&actions.Response{OK: true, Draft: "hi"}, &recorder{err: errors.New("denied")})
		require.False(t, s.IsError)
		require.Equal(t, "Draft created, but clipboard copy failed.", s.Message)
	})

	t.Run("manifests", func(t *testing.T) {
		r := &recorder{}
		s := Render(&actions.Response{OK: true, Downloaded: 2, Message: "Started 2 download(s). Streaming manifests found.", ManifestText: "a\nb"}, r)
		require.Equal(t, "Started 2 download(s). Streaming manifests found. Manifest URLs copied.", s.Message)
		require.Equal(t, "a\nb", r.text)

		require.Equal(t, "Manifest URLs copied.", Render(&actions.Response{OK: true, ManifestText: "a"}, &recorder{}).Message)

		s = Render(&actions.Response{OK: true, ManifestText: "a"}, &recorder{err: errors.New("denied")})
		require.True(t, s.IsError)
		require.Equal(t, "Action completed, but manifest copy failed.", s.Message)
	})

	t.Run("downloads and fallbacks", func(t *testing.T) {
		require.Equal(t, "Started 3 download(s).", Render(&actions.Response{OK: true, Downloaded: 3, Message: "ignored"}, &recorder{}).Message)
		require.Equal(t, "All good.", Render(&actions.Response{OK: true, Message: "All good."}, &recorder{}).Message)
		require.Equal(t, "Done.", Render(&actions.Response{OK: true}, &recorder{}).Message)
	})

	require.True(t, strings.HasSuffix(StatusWorking, "..."))
}
