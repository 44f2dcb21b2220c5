// Package transcript copies a YouTube video's transcript out of the watch page.
package transcript

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/videoid"
)

var (
	ErrNotWatchPage = errors.New("Open a YouTube watch page first.")
	ErrNoPanel      = errors.New("Could not find transcript panel. Open transcript on the page and try again.")
	ErrNoText       = errors.New("Transcript panel found, but no transcript text was detected.")
)

const (
	segmentSelector      = "ytd-transcript-segment-renderer"
	directButtonSelector = `button[aria-label*="transcript" i], tp-yt-paper-button[aria-label*="transcript" i]`
	moreActionsSelector  = `button[aria-label*="more actions" i], button[aria-label*="actions" i]`
	menuItemSelector     = "ytd-menu-service-item-renderer,tp-yt-paper-item,yt-formatted-string"
)

var (
	lineSelector = strings.Join([]string{
		"ytd-transcript-segment-renderer #segment-text",
		"ytd-transcript-segment-renderer .segment-text",
		"ytd-transcript-segment-renderer yt-formatted-string",
	}, ", ")
	panelSelectors   = []string{"ytd-transcript-renderer", "ytd-engagement-panel-section-list-renderer"}
	transcriptItemRe = regexp.MustCompile(`(?i)transcript`)
	whitespaceRe     = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{feff}]+`)
)

// Timing bounds the reveal flow. Zero fields take the defaults.
type Timing struct {
	DirectWait   time.Duration
	MenuDelay    time.Duration
	MenuWait     time.Duration
	PanelWait    time.Duration
	PollInterval time.Duration
}

var DefaultTiming = Timing{
	DirectWait:   4 * time.Second,
	MenuDelay:    250 * time.Millisecond,
	MenuWait:     5 * time.Second,
	PanelWait:    6 * time.Second,
	PollInterval: page.DefaultPollInterval,
}

func (t Timing) withDefaults() Timing {
	if t.DirectWait <= 0 {
		t.DirectWait = DefaultTiming.DirectWait
	}
	if t.MenuDelay <= 0 {
		t.MenuDelay = DefaultTiming.MenuDelay
	}
	if t.MenuWait <= 0 {
		t.MenuWait = DefaultTiming.MenuWait
	}
	if t.PanelWait <= 0 {
		t.PanelWait = DefaultTiming.PanelWait
	}
	if t.PollInterval <= 0 {
		t.PollInterval = DefaultTiming.PollInterval
	}
	return t
}

// Fetch reveals the transcript panel if needed and returns its lines joined
// by newlines. Non-watch pages fail before any DOM query.
func Fetch(ctx context.Context, p page.Page, timing Timing) (string, error) {
	if !videoid.IsYouTubeWatchURL(p.URL()) {
		return "", ErrNotWatchPage
	}
	timing = timing.withDefaults()

	attempted, err := openPanel(ctx, p, timing)
	if err != nil {
		return "", err
	}
	slog.Debug("transcript panel reveal", "attempted", attempted, "url", p.URL())

	found, err := page.WaitFor(ctx, p, timing.PanelWait, timing.PollInterval, panelSelectors...)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoPanel
	}

	lines, err := Lines(ctx, p)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrNoText
	}
	return strings.Join(lines, "\n"), nil
}

// openPanel tries the direct button first, then the overflow menu. It reports
// whether lines were present or a reveal was attempted.
func openPanel(ctx context.Context, p page.Page, timing Timing) (bool, error) {
	existing, err := Lines(ctx, p)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return true, nil
	}

	clicked, err := p.Click(ctx, directButtonSelector, nil)
	if err != nil {
		return false, err
	}
	if clicked {
		slog.Debug("transcript button clicked")
		_, err := page.WaitFor(ctx, p, timing.DirectWait, timing.PollInterval, segmentSelector)
		return true, err
	}

	opened, err := p.Click(ctx, moreActionsSelector, nil)
	if err != nil || !opened {
		return false, err
	}
	if err := page.Sleep(ctx, timing.MenuDelay); err != nil {
		return false, err
	}

	picked, err := p.Click(ctx, menuItemSelector, transcriptItemRe)
	if err != nil || !picked {
		return false, err
	}
	slog.Debug("transcript menu item clicked")
	_, err = page.WaitFor(ctx, p, timing.MenuWait, timing.PollInterval, segmentSelector)
	return true, err
}

// Lines collects transcript segment text with whitespace collapsed, empties
// dropped, and exact duplicates removed in first-seen order.
func Lines(ctx context.Context, p page.Page) ([]string, error) {
	texts, err := p.Texts(ctx, lineSelector)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(texts))
	lines := make([]string, 0, len(texts))
	for _, text := range texts {
		line := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines, nil
}
