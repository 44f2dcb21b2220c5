// Package discovery finds media URLs on a page: direct files, streaming
// manifests, and YouTube's own stream formats.
package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"thirdcoast.systems/browserutility/internal/bridge"
	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/videoid"
	"thirdcoast.systems/browserutility/pkg/youtube"
)

var (
	mediaLinkRe      = regexp.MustCompile(`(?i)\.(mp4|webm|mov|m4v|m3u8|mpd)(\?|$)`)
	manifestRe       = regexp.MustCompile(`(?i)(m3u8|mpd)`)
	scriptManifestRe = regexp.MustCompile(`(?i)https?://[^"'\\\s]+?(?:m3u8|mpd)[^"'\\\s]*`)
	directFileRe     = regexp.MustCompile(`(?i)\.(mp4|webm|mov|m4v)(\?|$)`)

	scriptUnescaper = strings.NewReplacer(`\u0026`, "&", `\/`, "/")
)

// urlSet keeps first-seen order.
type urlSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *urlSet) add(u string) {
	if u == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.items = append(s.items, u)
}

// VideoURLs collects candidate media URLs from video elements, links, and
// inline scripts. Relative URLs are resolved against the page URL.
func VideoURLs(ctx context.Context, p page.Page) ([]string, error) {
	base, _ := url.Parse(p.URL())
	var set urlSet

	// Per video: currentSrc, src, then its <source> children.
	current, err := p.Attrs(ctx, "video", "currentSrc")
	if err != nil {
		return nil, err
	}
	srcs, err := p.Attrs(ctx, "video", "src")
	if err != nil {
		return nil, err
	}
	sources, err := p.ChildAttrs(ctx, "video", "source", "src")
	if err != nil {
		return nil, err
	}
	for i := 0; i < max(len(current), len(srcs), len(sources)); i++ {
		set.add(resolve(base, at(current, i)))
		set.add(resolve(base, at(srcs, i)))
		if i < len(sources) {
			for _, src := range sources[i] {
				set.add(resolve(base, src))
			}
		}
	}

	hrefs, err := p.Attrs(ctx, "a[href]", "href")
	if err != nil {
		return nil, err
	}
	for _, h := range hrefs {
		abs := resolve(base, h)
		if mediaLinkRe.MatchString(abs) || manifestRe.MatchString(abs) {
			set.add(abs)
		}
	}

	scripts, err := p.Texts(ctx, "script")
	if err != nil {
		return nil, err
	}
	for _, text := range scripts {
		for _, raw := range scriptManifestRe.FindAllString(text, -1) {
			set.add(scriptUnescaper.Replace(raw))
		}
	}

	return set.items, nil
}

// ManifestCandidates filters urls down to HLS/DASH manifests and adds any the
// page has fetched.
func ManifestCandidates(ctx context.Context, p page.Page, urls []string) []string {
	var set urlSet
	for _, u := range urls {
		if manifestRe.MatchString(u) {
			set.add(u)
		}
	}

	resources, err := p.ResourceURLs(ctx)
	if err != nil {
		slog.Debug("resource timing unavailable", "error", err)
	}
	for _, name := range resources {
		if manifestRe.MatchString(name) {
			set.add(name)
		}
	}
	return set.items
}

// IsDirectFile reports whether u names a downloadable video file.
func IsDirectFile(u string) bool {
	return directFileRe.MatchString(u)
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// Discoverer reads YouTube stream info through the page bridge.
type Discoverer struct {
	bridge *bridge.Bridge
}

func New(b *bridge.Bridge) *Discoverer {
	if b == nil {
		b = bridge.New(bridge.DefaultTimeout)
	}
	return &Discoverer{bridge: b}
}

// YouTubeStreams returns the best streams of a watch page. ok is false off
// watch pages, when the page never answers, or when nothing resolves.
func (d *Discoverer) YouTubeStreams(ctx context.Context, p page.Page) (info youtube.StreamInfo, ok bool, err error) {
	if !videoid.IsYouTubeWatchURL(p.URL()) {
		return youtube.StreamInfo{}, false, nil
	}

	payload, err := d.bridge.Request(ctx, func(ctx context.Context, channel string) error {
		return p.PostPlayerResponse(ctx, channel, d.bridge.Deliver)
	})
	if err != nil {
		return youtube.StreamInfo{}, false, err
	}
	if payload == nil {
		slog.Debug("no player response from page", "url", p.URL())
		return youtube.StreamInfo{}, false, nil
	}

	pr, err := youtube.ParsePlayerResponse(payload)
	if err != nil {
		slog.Warn("player response did not decode", "url", p.URL(), "error", err)
		return youtube.StreamInfo{}, false, nil
	}

	title, _ := p.Title(ctx)
	info, ok = youtube.SelectStreams(pr, title)
	if ok && info.VideoID == "" {
		info.VideoID, _ = videoid.ExtractYouTubeVideoID(p.URL())
	}
	return info, ok, nil
}
