// Package page abstracts the browser tab that content actions run against.
//
// Two implementations exist: Snapshot, a static goquery document built from
// fetched HTML, and rodpage.Page, a live Chromium tab.
package page

import (
	"context"
	"regexp"
	"time"

	"thirdcoast.systems/browserutility/internal/bridge"
)

// DefaultPollInterval is how often WaitFor re-queries the DOM.
const DefaultPollInterval = 150 * time.Millisecond

// Page is the DOM surface content actions need.
type Page interface {
	// URL is the page's current location.
	URL() string
	Title(ctx context.Context) (string, error)

	// Texts returns the text content of every element matching selector, in
	// document order. Empty strings are kept so len() counts matches.
	Texts(ctx context.Context, selector string) ([]string, error)
	// Attrs returns the named property (live pages) or attribute (snapshots)
	// of every element matching selector. Missing values are empty strings.
	Attrs(ctx context.Context, selector, name string) ([]string, error)
	// ChildAttrs returns, per element matching selector, the named value of
	// each descendant matching child.
	ChildAttrs(ctx context.Context, selector, child, name string) ([][]string, error)

	// Click clicks the first element matching selector whose text matches
	// textPattern (any text when nil). It reports whether one was found.
	Click(ctx context.Context, selector string, textPattern *regexp.Regexp) (bool, error)

	// Selection is the user's current text selection.
	Selection(ctx context.Context) (string, error)
	// InsertText replaces the content of the first editable element matching
	// selector with text. It reports whether the element was found.
	InsertText(ctx context.Context, selector, text string) (bool, error)

	// ResourceURLs lists URLs the page has fetched, when known.
	ResourceURLs(ctx context.Context) ([]string, error)

	// PostPlayerResponse reads the page-owned ytInitialPlayerResponse and
	// posts it to deliver under channel. A page without one posts null.
	PostPlayerResponse(ctx context.Context, channel string, deliver func(bridge.Message) bool) error
}

// Exists reports whether any element matches one of selectors.
func Exists(ctx context.Context, p Page, selectors ...string) (bool, error) {
	for _, sel := range selectors {
		texts, err := p.Texts(ctx, sel)
		if err != nil {
			return false, err
		}
		if len(texts) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// WaitFor polls until one of selectors matches or timeout elapses. It reports
// whether a match was seen; only context cancellation is an error.
func WaitFor(ctx context.Context, p Page, timeout, interval time.Duration, selectors ...string) (bool, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := Exists(ctx, p, selectors...)
		if err != nil || ok {
			return ok, err
		}
		if !time.Now().Add(interval).Before(deadline) {
			return false, nil
		}
		if err := Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
