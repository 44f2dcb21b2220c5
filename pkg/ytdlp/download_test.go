package ytdlp

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeTitle(t *testing.T) {
	require.Equal(t, "a b c", SafeTitle(` a/b:c `, "x"))
	require.Equal(t, "youtube-video", SafeTitle(`<>|?*`, "youtube-video"))
	require.Equal(t, "page-video", SafeTitle("", "page-video"))
}

func TestOutputTemplate(t *testing.T) {
	require.Equal(t, filepath.Join("/dl", "Clip.%(ext)s"), OutputTemplate("/dl", "Clip"))
}

func TestDownloadYouTube_FallsThroughStrategies(t *testing.T) {
	c := New()
	var calls [][]string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls = append(calls, args)
		if len(calls) < 3 {
			return nil, []byte("ERROR: nope"), errors.New("exit status 1")
		}
		return nil, nil, nil
	}

	err := c.DownloadYouTube(context.Background(), "https://youtu.be/x", "/dl/t.%(ext)s")
	require.NoError(t, err)
	require.Len(t, calls, 3)
	require.Equal(t, []string{"--no-playlist", "-f", "bv*+ba/b", "--merge-output-format", "mp4", "-o", "/dl/t.%(ext)s", "https://youtu.be/x"}, calls[0])
	require.Contains(t, strings.Join(calls[1], " "), "youtube:player_client=ios,mweb,web")
	require.Contains(t, strings.Join(calls[2], " "), "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b")
}

func TestDownloadYouTube_ReturnsLastError(t *testing.T) {
	c := New()
	n := 0
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		n++
		return nil, []byte("attempt failed " + string(rune('0'+n))), errors.New("exit status 1")
	}

	err := c.DownloadYouTube(context.Background(), "https://youtu.be/x", "t")
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "attempt failed 3", ee.Stderr)
	require.Equal(t, 3, n)
}

func TestDownloadYouTube_StopsWhenBinaryMissing(t *testing.T) {
	c := New()
	n := 0
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		n++
		return nil, nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}

	err := c.DownloadYouTube(context.Background(), "https://youtu.be/x", "t")
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "yt-dlp not found: yt-dlp", c.FailureMessage(err, "", "yt-dlp failed"))
}

func TestDownloadManifest_Referer(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		require.Equal(t, []string{
			"--no-playlist", "--merge-output-format", "mp4", "-o", "t",
			"--add-header", "Referer: https://site/page",
			"https://cdn/x.m3u8",
		}, args)
		return nil, nil, nil
	}
	require.NoError(t, c.DownloadManifest(context.Background(), "https://cdn/x.m3u8", "t", " https://site/page "))
}

func TestDownloadPage(t *testing.T) {
	c := New()
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		require.Equal(t, []string{"--no-playlist", "--merge-output-format", "mp4", "-o", "t", "https://site/page"}, args)
		return nil, nil, nil
	}
	require.NoError(t, c.DownloadPage(context.Background(), "https://site/page", "t"))
	require.Error(t, c.DownloadPage(context.Background(), " ", "t"))
}

func TestFailureMessage(t *testing.T) {
	c := &Client{Path: "/bin/yt-dlp"}

	err := wrapExecError("yt-dlp", nil, []byte("stdout text"), nil, errors.New("exit status 1"))
	require.Equal(t, "stdout text\n[yt-dlp:/bin/yt-dlp version:2025.01.01]", c.FailureMessage(err, "2025.01.01", "yt-dlp failed"))

	err = wrapExecError("yt-dlp", nil, nil, nil, errors.New("exit status 1"))
	require.Equal(t, "yt-dlp failed\n[yt-dlp:/bin/yt-dlp version:unknown]", c.FailureMessage(err, "", "yt-dlp failed"))

	err = wrapExecError("yt-dlp", nil, nil, []byte("WARNING: x\nERROR: nsig extraction failed: oops"), errors.New("exit status 1"))
	msg := c.FailureMessage(err, "1", "yt-dlp failed")
	require.True(t, strings.HasSuffix(msg, "\n"+nsigHint))

	long := strings.Repeat("e", 2000)
	err = wrapExecError("yt-dlp", nil, nil, []byte(long), errors.New("exit status 1"))
	msg = c.FailureMessage(err, "1", "f")
	require.True(t, strings.HasPrefix(msg, strings.Repeat("e", 1500)+"\n[yt-dlp:"))
}
