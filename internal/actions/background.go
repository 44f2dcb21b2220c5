package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"thirdcoast.systems/browserutility/internal/merge"
	"thirdcoast.systems/browserutility/internal/reply"
	"thirdcoast.systems/browserutility/pkg/filename"
	"thirdcoast.systems/browserutility/pkg/openai"
)

const (
	youTubeTitleFallback = "youtube-video"
	streamTitleFallback  = "stream-video"
	pageTitleFallback    = "page-video"
)

var (
	ErrMissingURL    = errors.New("Missing URL to download.")
	ErrMissingTracks = errors.New("Missing video/audio track URLs.")
)

func (d *Dispatcher) generateReplyDraft(ctx context.Context, sourceText string) (string, error) {
	s, err := d.settings.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if s.OpenAIAPIKey == "" {
		return "", openai.ErrMissingAPIKey
	}

	prompt := reply.BuildPrompt(s.ReplyGuidelinesMarkdown, sourceText)
	return openai.NewClient(d.openAIBaseURL, s.OpenAIAPIKey).Draft(ctx, s.OpenAIModel, prompt)
}

// downloadURL saves rawURL as "<subfolder>/<sanitized hint>.<ext>".
func (d *Dispatcher) downloadURL(ctx context.Context, rawURL, hint string) (int64, error) {
	if strings.TrimSpace(rawURL) == "" {
		return 0, ErrMissingURL
	}
	if d.downloads == nil {
		return 0, errors.New("Downloads are not available.")
	}
	base := filename.Sanitize(hint)
	ext := filename.ExtensionFromURL(rawURL, "mp4")
	return d.downloads.Start(ctx, rawURL, path.Join(d.subfolder, base+"."+ext))
}

func (d *Dispatcher) downloadAndMergeTracks(ctx context.Context, videoURL, audioURL, baseName string) (Response, error) {
	if strings.TrimSpace(videoURL) == "" || strings.TrimSpace(audioURL) == "" {
		return Response{}, ErrMissingTracks
	}
	if d.downloads == nil {
		return Response{}, errors.New("Downloads are not available.")
	}

	s, err := d.settings.Load(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("load settings: %w", err)
	}

	if strings.TrimSpace(baseName) == "" {
		baseName = youTubeTitleFallback
	}
	base := filename.Sanitize(baseName)
	videoName := path.Join(d.subfolder, base+".video."+filename.ExtensionFromURL(videoURL, "mp4"))
	audioName := path.Join(d.subfolder, base+".audio."+filename.ExtensionFromURL(audioURL, "m4a"))
	mergedName := base + ".merged.mp4"

	videoID, err := d.downloads.Start(ctx, videoURL, videoName)
	if err != nil {
		return Response{}, err
	}
	audioID, err := d.downloads.Start(ctx, audioURL, audioName)
	if err != nil {
		return Response{}, err
	}

	items, err := d.downloads.WaitAll(ctx, videoID, audioID)
	if err != nil {
		return Response{}, err
	}

	if !s.AutoMergeYouTubeStreams {
		return Response{
			Downloaded: 2,
			Merged:     boolPtr(false),
			Message:    "Downloaded separate video/audio tracks. Enable auto-merge in settings to combine automatically.",
		}, nil
	}

	res, err := merge.NewClient(s.MergeServiceURL).Merge(ctx, merge.Request{
		VideoPath:  items[0].Filename,
		AudioPath:  items[1].Filename,
		OutputPath: mergedName,
	})
	if err != nil {
		return Response{}, err
	}
	slog.Info("tracks merged", "video", items[0].Filename, "audio", items[1].Filename, "output", res.OutputPath)

	return Response{
		Downloaded: 2,
		Merged:     boolPtr(true),
		OutputPath: res.OutputPath,
		Message:    "Downloaded separate tracks and merged them into a single MP4.",
	}, nil
}

func (d *Dispatcher) helperClient(ctx context.Context) (*merge.Client, error) {
	s, err := d.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return merge.NewClient(s.MergeServiceURL), nil
}

// outputDir is where helper downloads land, matching downloadURL's folder.
func (d *Dispatcher) outputDir() string {
	if d.downloads == nil {
		return ""
	}
	return filepath.Join(d.downloads.Root(), d.subfolder)
}

func helperResponse(res *merge.Result, fallback string) Response {
	msg := strings.TrimSpace(res.Message)
	if msg == "" {
		msg = fallback
	}
	return Response{Downloaded: 1, Message: msg, OutputDir: res.OutputDir}
}

func (d *Dispatcher) youTubeViaHelper(ctx context.Context, videoURL, titleHint string) (Response, error) {
	if strings.TrimSpace(videoURL) == "" {
		return Response{}, errors.New("video_url is required")
	}
	c, err := d.helperClient(ctx)
	if err != nil {
		return Response{}, err
	}
	res, err := c.DownloadYouTube(ctx, merge.YouTubeRequest{
		VideoURL:  videoURL,
		TitleHint: orDefault(titleHint, youTubeTitleFallback),
		OutputDir: d.outputDir(),
	})
	if err != nil {
		return Response{}, err
	}
	return helperResponse(res, "Started helper-based YouTube download."), nil
}

func (d *Dispatcher) manifestViaHelper(ctx context.Context, manifestURL, titleHint, pageURL string) (Response, error) {
	if strings.TrimSpace(manifestURL) == "" {
		return Response{}, errors.New("manifest_url is required")
	}
	c, err := d.helperClient(ctx)
	if err != nil {
		return Response{}, err
	}
	res, err := c.DownloadManifest(ctx, merge.ManifestRequest{
		ManifestURL: manifestURL,
		PageURL:     pageURL,
		TitleHint:   orDefault(titleHint, streamTitleFallback),
		OutputDir:   d.outputDir(),
	})
	if err != nil {
		return Response{}, err
	}
	return helperResponse(res, "Started helper-based stream download from manifest."), nil
}

func (d *Dispatcher) pageViaHelper(ctx context.Context, pageURL, titleHint string) (Response, error) {
	if strings.TrimSpace(pageURL) == "" {
		return Response{}, errors.New("page_url is required")
	}
	c, err := d.helperClient(ctx)
	if err != nil {
		return Response{}, err
	}
	res, err := c.DownloadPage(ctx, merge.PageRequest{
		PageURL:   pageURL,
		TitleHint: orDefault(titleHint, pageTitleFallback),
		OutputDir: d.outputDir(),
	})
	if err != nil {
		return Response{}, err
	}
	return helperResponse(res, "Started helper-based page video download."), nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
