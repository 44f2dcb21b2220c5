// Package reply gathers the text to answer on an X page, builds the drafting
// prompt, and places the finished draft into the composer.
package reply

import (
	"context"
	"errors"
	"strings"

	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/pkg/utils/markdown"
)

const (
	ComposerSelector  = `div[role="textbox"][data-testid="tweetTextarea_0"]`
	TweetTextSelector = `article [data-testid="tweetText"]`

	DefaultGuidelines = "Write a concise, clear, and respectful reply in a natural tone."
)

var (
	ErrNotX      = errors.New("Open X (x.com) to draft a reply.")
	ErrNoContext = errors.New("No selected text or tweet text found.")
)

// FindContext returns the user's selection, else the composer text, else the
// first tweet's text.
func FindContext(ctx context.Context, p page.Page) (string, error) {
	sel, err := p.Selection(ctx)
	if err != nil {
		return "", err
	}
	if s := strings.TrimSpace(sel); s != "" {
		return s, nil
	}

	for _, selector := range []string{ComposerSelector, TweetTextSelector} {
		texts, err := p.Texts(ctx, selector)
		if err != nil {
			return "", err
		}
		if len(texts) > 0 {
			if s := strings.TrimSpace(texts[0]); s != "" {
				return s, nil
			}
		}
	}
	return "", ErrNoContext
}

// BuildPrompt assembles the drafting instructions around sourceText.
func BuildPrompt(guidelinesMarkdown, sourceText string) string {
	instructions := DefaultGuidelines
	if md := markdown.New(guidelinesMarkdown); !md.IsBlank() {
		instructions = md.Trimmed()
	}
	return strings.Join([]string{
		"Draft a response for X (Twitter).",
		"Return only the final reply text without analysis or bullets.",
		"",
		"Guidelines (markdown):",
		instructions,
		"",
		"Text to respond to:",
		sourceText,
	}, "\n")
}

// Insert puts draft into the composer. Failures are swallowed; the caller
// still has the draft for the clipboard.
func Insert(ctx context.Context, p page.Page, draft string) bool {
	ok, err := p.InsertText(ctx, ComposerSelector, draft)
	return err == nil && ok
}

// InsertMessage is the status line for an insertion outcome.
func InsertMessage(inserted bool) string {
	if inserted {
		return "Draft inserted into composer."
	}
	return "Draft generated."
}
