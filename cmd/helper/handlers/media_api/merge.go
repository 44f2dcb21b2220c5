// Package media_api serves the local media helper endpoints: ffmpeg merges
// and yt-dlp downloads.
package media_api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/common"
	"thirdcoast.systems/browserutility/internal/merge"
	"thirdcoast.systems/browserutility/internal/metrics"
	"thirdcoast.systems/browserutility/pkg/ffmpeg"
)

// MergeFunc muxes a video and an audio track into output.
type MergeFunc func(ctx context.Context, videoPath, audioPath, output string) error

// FFmpegMerger runs binary (ffmpeg when empty) with stream copy.
func FFmpegMerger(binary string) MergeFunc {
	return func(ctx context.Context, videoPath, audioPath, output string) error {
		return ffmpeg.Merge(ctx, binary, videoPath, audioPath, output)
	}
}

// ResolveOutput makes a relative output path absolute against the directory
// of the video track.
func ResolveOutput(videoPath, output string) (string, error) {
	if filepath.IsAbs(output) {
		return filepath.Clean(output), nil
	}
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(absVideo), output), nil
}

func HandleMerge(binary string, run MergeFunc) echo.HandlerFunc {
	if strings.TrimSpace(binary) == "" {
		binary = ffmpeg.DefaultBinary
	}
	if run == nil {
		run = FFmpegMerger(binary)
	}

	return func(c echo.Context) error {
		var req merge.Request
		if err := common.DecodeJSON(c, &req); err != nil {
			return common.InvalidJSON(c, err)
		}
		if req.VideoPath == "" || req.AudioPath == "" || req.OutputPath == "" {
			slog.Warn("merge rejected: missing required fields")
			return common.Fail(c, http.StatusBadRequest, "video_path, audio_path, output_path are required")
		}

		out, err := ResolveOutput(req.VideoPath, req.OutputPath)
		if err != nil {
			return common.Fail(c, http.StatusInternalServerError, err.Error())
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return common.Fail(c, http.StatusInternalServerError, err.Error())
		}

		slog.Info("merge start", "video", req.VideoPath, "audio", req.AudioPath, "out", out)
		start := time.Now()
		err = run(c.Request().Context(), req.VideoPath, req.AudioPath, out)
		metrics.MergeDuration.WithLabelValues(metrics.Outcome(err)).Observe(time.Since(start).Seconds())
		if err != nil {
			msg := mergeFailure(binary, err)
			slog.Error("merge failed", "error", msg)
			return common.Fail(c, http.StatusInternalServerError, msg)
		}

		slog.Info("merge success", "out", out, "elapsed", time.Since(start))
		return c.JSON(http.StatusOK, merge.Result{OK: true, OutputPath: out})
	}
}

func mergeFailure(binary string, err error) string {
	var fe *ffmpeg.Error
	if !errors.As(err, &fe) {
		return err.Error()
	}
	if fe.NotFound() {
		return "ffmpeg not found: " + binary
	}
	if tail := fe.StderrTail(1000); tail != "" {
		return tail
	}
	return "ffmpeg failed"
}
