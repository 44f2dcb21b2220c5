package page

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"thirdcoast.systems/browserutility/internal/bridge"
	"thirdcoast.systems/browserutility/pkg/youtube"
)

const (
	snapshotUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	maxSnapshotBytes  = 16 << 20
)

// Snapshot is a static page parsed once from HTML. Clicks have no effect on a
// snapshot; InsertText rewrites the in-memory document.
type Snapshot struct {
	url       string
	raw       string
	selection string
	resources []string

	mu  sync.Mutex
	doc *goquery.Document
}

type SnapshotOption func(*Snapshot)

// WithSelection sets the text Selection reports.
func WithSelection(text string) SnapshotOption {
	return func(s *Snapshot) { s.selection = text }
}

// WithResources sets the URLs ResourceURLs reports.
func WithResources(urls []string) SnapshotOption {
	return func(s *Snapshot) { s.resources = append([]string(nil), urls...) }
}

func NewSnapshot(pageURL, html string, opts ...SnapshotOption) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	s := &Snapshot{url: pageURL, raw: html, doc: doc}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchSnapshot downloads pageURL and parses it. The final URL after
// redirects becomes the snapshot's URL.
func FetchSnapshot(ctx context.Context, client *http.Client, pageURL string, opts ...SnapshotOption) (*Snapshot, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", snapshotUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return NewSnapshot(finalURL, string(body), opts...)
}

func (s *Snapshot) URL() string { return s.url }

func (s *Snapshot) Title(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

func (s *Snapshot) Texts(_ context.Context, selector string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel.Text())
	})
	return out, nil
}

func (s *Snapshot) Attrs(_ context.Context, selector, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		v, _ := sel.Attr(name)
		out = append(out, v)
	})
	return out, nil
}

func (s *Snapshot) ChildAttrs(_ context.Context, selector, child, name string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]string
	s.doc.Find(selector).Each(func(_ int, parent *goquery.Selection) {
		values := []string{}
		parent.Find(child).Each(func(_ int, sel *goquery.Selection) {
			v, _ := sel.Attr(name)
			values = append(values, v)
		})
		out = append(out, values)
	})
	return out, nil
}

func (s *Snapshot) Click(_ context.Context, selector string, textPattern *regexp.Regexp) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	s.doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if textPattern == nil || textPattern.MatchString(sel.Text()) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (s *Snapshot) Selection(context.Context) (string, error) {
	return s.selection, nil
}

func (s *Snapshot) InsertText(_ context.Context, selector, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return false, nil
	}
	sel.SetText(text)
	return true, nil
}

func (s *Snapshot) ResourceURLs(context.Context) ([]string, error) {
	return append([]string(nil), s.resources...), nil
}

// PostPlayerResponse answers from the inline ytInitialPlayerResponse script of
// the fetched HTML.
func (s *Snapshot) PostPlayerResponse(_ context.Context, channel string, deliver func(bridge.Message) bool) error {
	payload := json.RawMessage("null")
	if raw, err := youtube.ExtractPlayerResponseJSON(s.raw); err == nil {
		payload = raw
	}
	deliver(bridge.Message{Channel: channel, Payload: payload})
	return nil
}

// HTML renders the current document, including any inserted text.
func (s *Snapshot) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Html()
}
