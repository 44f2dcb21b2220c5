package videoid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsYouTubeWatchURL(t *testing.T) {
	require.True(t, IsYouTubeWatchURL("https://www.youtube.com/watch?v=ggLajT7aMMk"))
	require.True(t, IsYouTubeWatchURL("https://m.youtube.com/watch?v=ggLajT7aMMk&t=3"))
	require.True(t, IsYouTubeWatchURL("http://youtube.com:443/watch?v=x"))
	require.False(t, IsYouTubeWatchURL("https://www.youtube.com/shorts/ggLajT7aMMk"))
	require.False(t, IsYouTubeWatchURL("https://youtu.be/ggLajT7aMMk"))
	require.False(t, IsYouTubeWatchURL("https://example.com/watch?v=x"))
	require.False(t, IsYouTubeWatchURL(""))
}

func TestIsXURL(t *testing.T) {
	require.True(t, IsXURL("https://x.com/someone/status/1"))
	require.True(t, IsXURL("https://www.x.com/home"))
	require.False(t, IsXURL("https://netflix.com/"))
	require.False(t, IsXURL("https://twitter.com/someone"))
}

func TestExtractYouTubeVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=ggLajT7aMMk&t=123s": "ggLajT7aMMk",
		"https://youtu.be/ggLajT7aMMk?t=120":                 "ggLajT7aMMk",
		"https://youtube.com/shorts/ggLajT7aMMk":             "ggLajT7aMMk",
		"https://www.youtube.com/embed/ggLajT7aMMk":          "ggLajT7aMMk",
		"https://www.youtube.com/live/ggLajT7aMMk/extra":     "ggLajT7aMMk",
	}
	for in, want := range cases {
		got, err := ExtractYouTubeVideoID(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ExtractYouTubeVideoID("https://example.com/watch?v=abc")
	require.Error(t, err)
	_, err = ExtractYouTubeVideoID("")
	require.Error(t, err)
}
