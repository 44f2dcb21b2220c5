package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"thirdcoast.systems/browserutility/internal/discovery"
	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/reply"
	"thirdcoast.systems/browserutility/internal/transcript"
	"thirdcoast.systems/browserutility/internal/videoid"
)

var (
	ErrNoVideoURLs = errors.New("No video URLs discovered on this page.")
	ErrDraftFailed = errors.New("Draft generation failed.")
)

func (d *Dispatcher) copyYouTubeTranscript(ctx context.Context, p page.Page) (Response, error) {
	text, err := transcript.Fetch(ctx, p, d.timing)
	if err != nil {
		return Response{}, err
	}
	return Response{Transcript: text}, nil
}

func (d *Dispatcher) draftXReply(ctx context.Context, p page.Page) (Response, error) {
	if !videoid.IsXURL(p.URL()) {
		return Response{}, reply.ErrNotX
	}

	source, err := reply.FindContext(ctx, p)
	if err != nil {
		return Response{}, err
	}

	draft, err := d.generateReplyDraft(ctx, source)
	if err != nil {
		return Response{}, err
	}
	if draft == "" {
		return Response{}, ErrDraftFailed
	}

	inserted := reply.Insert(ctx, p, draft)
	return Response{Draft: draft, Message: reply.InsertMessage(inserted)}, nil
}

// downloadPageVideo prefers YouTube's own streams on watch pages, then direct
// files, then the helper for manifests and finally the whole page.
func (d *Dispatcher) downloadPageVideo(ctx context.Context, p page.Page) (Response, error) {
	discovered, err := discovery.VideoURLs(ctx, p)
	if err != nil {
		return Response{}, err
	}
	manifests := discovery.ManifestCandidates(ctx, p, discovered)

	withManifests := func(r Response) Response {
		r.ManifestCandidates = manifests
		r.ManifestText = strings.Join(manifests, "\n")
		return r
	}
	manifestSuffix := ""
	if len(manifests) > 0 {
		manifestSuffix = " Streaming manifests found."
	}

	title, _ := p.Title(ctx)

	if videoid.IsYouTubeWatchURL(p.URL()) {
		r, err := d.downloadYouTubePage(ctx, p, title, manifestSuffix)
		if err != nil {
			return Response{}, err
		}
		return withManifests(r), nil
	}

	if len(discovered) == 0 {
		return Response{}, ErrNoVideoURLs
	}

	downloaded := 0
	for _, u := range discovered {
		if !discovery.IsDirectFile(u) {
			continue
		}
		if _, err := d.downloadURL(ctx, u, ""); err != nil {
			slog.Warn("direct download failed to start", "url", u, "error", err)
			continue
		}
		downloaded++
	}
	if downloaded > 0 {
		return withManifests(Response{
			Downloaded: downloaded,
			Message:    fmt.Sprintf("Started %d download(s).%s", downloaded, manifestSuffix),
		}), nil
	}

	var helperErrors []string
	if len(manifests) > 0 {
		for _, m := range manifests {
			r, err := d.manifestViaHelper(ctx, m, orDefault(title, streamTitleFallback), p.URL())
			if err == nil {
				return withManifests(r), nil
			}
			slog.Warn("manifest helper failed", "manifest", m, "error", err)
			helperErrors = append(helperErrors, err.Error())
		}
	}

	r, err := d.pageViaHelper(ctx, p.URL(), orDefault(title, pageTitleFallback))
	if err == nil {
		return withManifests(r), nil
	}
	helperErrors = append(helperErrors, err.Error())

	return Response{}, fmt.Errorf("No direct downloadable media found. Helper fallbacks failed: %s", strings.Join(helperErrors, " | "))
}

func (d *Dispatcher) downloadYouTubePage(ctx context.Context, p page.Page, title, manifestSuffix string) (Response, error) {
	info, ok, err := d.discoverer.YouTubeStreams(ctx, p)
	if err != nil {
		return Response{}, err
	}

	switch {
	case ok && info.CombinedURL != "":
		if _, err := d.downloadURL(ctx, info.CombinedURL, orDefault(info.Title, youTubeTitleFallback)); err != nil {
			return Response{}, err
		}
		return Response{Downloaded: 1, Message: "Started 1 combined download." + manifestSuffix}, nil

	case ok && info.HasPair():
		merged, err := d.downloadAndMergeTracks(ctx, info.VideoOnlyURL, info.AudioOnlyURL, orDefault(info.Title, youTubeTitleFallback))
		if err != nil {
			return Response{}, err
		}
		return merged, nil

	default:
		r, err := d.youTubeViaHelper(ctx, p.URL(), orDefault(title, youTubeTitleFallback))
		if err != nil {
			return Response{}, fmt.Errorf("Could not find downloadable YouTube stream URLs on this page, and helper fallback failed: %w", err)
		}
		return r, nil
	}
}
