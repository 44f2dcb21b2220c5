package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"thirdcoast.systems/browserutility/pkg/utils/format"
)

const nsigHint = "Hint: local yt-dlp may be outdated. Re-run installer to fetch latest nightly yt-dlp, restart helper, and retry."

var titleReplacer = strings.NewReplacer(
	"<", " ", ">", " ", ":", " ", `"`, " ", "/", " ",
	`\`, " ", "|", " ", "?", " ", "*", " ",
)

// SafeTitle strips path-hostile characters from hint, falling back when
// nothing is left.
func SafeTitle(hint, fallback string) string {
	t := strings.TrimSpace(titleReplacer.Replace(strings.TrimSpace(hint)))
	if t == "" {
		return fallback
	}
	return t
}

// OutputTemplate is <dir>/<title>.%(ext)s.
func OutputTemplate(dir, title string) string {
	return filepath.Join(dir, title+".%(ext)s")
}

func baseArgs(template string) []string {
	return []string{"--no-playlist", "--merge-output-format", "mp4", "-o", template}
}

// YouTubeAttempts lists the argument sets tried in order for a YouTube URL.
// Signatures and the available player clients vary, so later attempts switch
// extraction strategy.
func YouTubeAttempts(videoURL, template string) [][]string {
	return [][]string{
		{"--no-playlist", "-f", "bv*+ba/b", "--merge-output-format", "mp4", "-o", template, videoURL},
		{"--no-playlist", "--extractor-args", "youtube:player_client=ios,mweb,web",
			"--merge-output-format", "mp4", "-o", template, videoURL},
		{"--no-playlist", "--extractor-args", "youtube:player_client=ios,web_embedded,mweb,web",
			"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b",
			"--merge-output-format", "mp4", "-o", template, videoURL},
	}
}

// DownloadYouTube tries each of YouTubeAttempts until one succeeds. The error
// of the last attempt is returned when all fail.
func (c *Client) DownloadYouTube(ctx context.Context, videoURL, template string) error {
	if strings.TrimSpace(videoURL) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}

	attempts := YouTubeAttempts(videoURL, template)
	var lastErr error
	for i, args := range attempts {
		slog.Info("ytdlp: YouTube attempt", "attempt", i+1, "of", len(attempts), "url", videoURL)
		stdout, stderr, err := c.exec(ctx, args...)
		if err == nil {
			slog.Info("ytdlp: YouTube download succeeded", "attempt", i+1)
			return nil
		}
		lastErr = wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
		if isNotFound(err) || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// DownloadManifest fetches an HLS/DASH manifest. A non-empty referer is sent
// as the Referer header.
func (c *Client) DownloadManifest(ctx context.Context, manifestURL, template, referer string) error {
	if strings.TrimSpace(manifestURL) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	args := baseArgs(template)
	if referer = strings.TrimSpace(referer); referer != "" {
		args = append(args, "--add-header", "Referer: "+referer)
	}
	args = append(args, manifestURL)
	return c.run(ctx, args)
}

// DownloadPage lets yt-dlp extract media from an arbitrary page URL.
func (c *Client) DownloadPage(ctx context.Context, pageURL, template string) error {
	if strings.TrimSpace(pageURL) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	return c.run(ctx, append(baseArgs(template), pageURL))
}

func (c *Client) run(ctx context.Context, args []string) error {
	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}

// FailureMessage renders err for the user: the tail of stderr (or stdout),
// the binary and its version, and an update hint for nsig failures.
func (c *Client) FailureMessage(err error, version, fallback string) string {
	var ee *ExecError
	if !errors.As(err, &ee) {
		if err == nil {
			return fallback
		}
		return err.Error()
	}
	if isNotFound(ee.Cause) {
		return "yt-dlp not found: " + c.PathOrDefault()
	}

	msg := format.Tail(ee.Stderr, 1500)
	if msg == "" {
		msg = format.Tail(ee.Stdout, 1000)
	}
	if msg == "" {
		msg = fallback
	}
	if strings.TrimSpace(version) == "" {
		version = "unknown"
	}
	msg = fmt.Sprintf("%s\n[yt-dlp:%s version:%s]", msg, c.PathOrDefault(), version)
	if strings.Contains(strings.ToLower(msg), "nsig extraction failed") {
		msg += "\n" + nsigHint
	}
	return msg
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
