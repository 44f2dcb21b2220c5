package media_api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/common"
	"thirdcoast.systems/browserutility/internal/merge"
	"thirdcoast.systems/browserutility/internal/metrics"
	"thirdcoast.systems/browserutility/pkg/ytdlp"
)

// Downloader is the part of *ytdlp.Client the helper endpoints use.
type Downloader interface {
	DownloadYouTube(ctx context.Context, videoURL, template string) error
	DownloadManifest(ctx context.Context, manifestURL, template, referer string) error
	DownloadPage(ctx context.Context, pageURL, template string) error
	FailureMessage(err error, version, fallback string) string
}

var _ Downloader = (*ytdlp.Client)(nil)

type HelperDeps struct {
	Downloader Downloader
	// Version is reported in failure messages; probed once at startup.
	Version string
	// DefaultDir is used when a request has no output_dir.
	DefaultDir string
}

// LogOutput forwards yt-dlp output lines to the helper log. Progress lines
// are debug level so a long download does not flood the info stream.
func LogOutput(stream, line string) {
	if strings.HasPrefix(line, "[download]") {
		slog.Debug("yt-dlp progress", "line", line)
		return
	}
	slog.Info("yt-dlp output", "stream", stream, "line", line)
}

func HandleDownloadYouTube(deps HelperDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req merge.YouTubeRequest
		if err := common.DecodeJSON(c, &req); err != nil {
			return common.InvalidJSON(c, err)
		}
		if req.VideoURL == "" {
			return common.Fail(c, http.StatusBadRequest, "video_url is required")
		}
		return deps.run(c, "youtube", req.OutputDir, req.TitleHint, "youtube-video",
			"YouTube download started/completed via yt-dlp helper.",
			func(ctx context.Context, template string) error {
				return deps.Downloader.DownloadYouTube(ctx, req.VideoURL, template)
			})
	}
}

func HandleDownloadManifest(deps HelperDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req merge.ManifestRequest
		if err := common.DecodeJSON(c, &req); err != nil {
			return common.InvalidJSON(c, err)
		}
		if req.ManifestURL == "" {
			return common.Fail(c, http.StatusBadRequest, "manifest_url is required")
		}
		return deps.run(c, "manifest", req.OutputDir, req.TitleHint, "stream-video",
			"Manifest download started/completed via yt-dlp helper.",
			func(ctx context.Context, template string) error {
				return deps.Downloader.DownloadManifest(ctx, req.ManifestURL, template, req.PageURL)
			})
	}
}

func HandleDownloadPage(deps HelperDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req merge.PageRequest
		if err := common.DecodeJSON(c, &req); err != nil {
			return common.InvalidJSON(c, err)
		}
		if req.PageURL == "" {
			return common.Fail(c, http.StatusBadRequest, "page_url is required")
		}
		return deps.run(c, "page", req.OutputDir, req.TitleHint, "page-video",
			"Page download started/completed via yt-dlp helper.",
			func(ctx context.Context, template string) error {
				return deps.Downloader.DownloadPage(ctx, req.PageURL, template)
			})
	}
}

func (deps HelperDeps) run(c echo.Context, kind, outputDir, titleHint, fallbackTitle, message string, download func(context.Context, string) error) error {
	if outputDir == "" {
		outputDir = deps.DefaultDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return common.Fail(c, http.StatusInternalServerError, err.Error())
	}
	template := ytdlp.OutputTemplate(outputDir, ytdlp.SafeTitle(titleHint, fallbackTitle))

	slog.Info("helper download start", "kind", kind, "template", template)
	err := download(c.Request().Context(), template)
	metrics.HelperDownloadsTotal.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	if err != nil {
		msg := deps.Downloader.FailureMessage(err, deps.Version, "yt-dlp failed")
		slog.Error("helper download failed", "kind", kind, "error", msg)
		return common.Fail(c, http.StatusInternalServerError, msg)
	}

	slog.Info("helper download success", "kind", kind, "output_dir", outputDir)
	return c.JSON(http.StatusOK, merge.Result{OK: true, OutputDir: outputDir, Message: message})
}
