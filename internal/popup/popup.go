// Package popup decides which actions a page offers and turns an action
// response into the one-line status the user sees.
package popup

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"thirdcoast.systems/browserutility/internal/actions"
)

const (
	StatusWorking    = "Working..."
	StatusNoResponse = "No response from page. Reload and try again."
)

var (
	youTubeWatchRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?youtube\.com/watch`)
	xRe            = regexp.MustCompile(`(?i)^https?://(?:www\.)?x\.com/`)
)

// Button is one popup action and whether the current URL allows it.
type Button struct {
	Action  string `json:"action"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Title   string `json:"title,omitempty"`
}

// Buttons gates the three page actions for url.
func Buttons(url string) []Button {
	onYouTube := youTubeWatchRe.MatchString(url)
	onX := xRe.MatchString(url)

	return []Button{
		{Action: actions.CopyYouTubeTranscript, Label: "Copy transcript", Enabled: onYouTube, Title: titleUnless(onYouTube, "Available on YouTube watch pages.")},
		{Action: actions.DraftXReply, Label: "Draft reply", Enabled: onX, Title: titleUnless(onX, "Available on x.com pages.")},
		{Action: actions.DownloadPageVideo, Label: "Find videos", Enabled: true, Title: "Available on all pages."},
	}
}

// Allowed reports whether action is enabled for url, with the reason when not.
func Allowed(action, url string) (bool, string) {
	for _, b := range Buttons(url) {
		if b.Action == action {
			return b.Enabled, b.Title
		}
	}
	return false, "Unknown action."
}

func titleUnless(ok bool, title string) string {
	if ok {
		return ""
	}
	return title
}

// Clipboard receives text the status line promises was copied.
type Clipboard interface {
	WriteText(text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(string) error

func (f ClipboardFunc) WriteText(text string) error { return f(text) }

type Status struct {
	Message string
	IsError bool
}

func (s Status) String() string { return s.Message }

// Render copies the relevant part of resp and describes the outcome. A nil
// resp means the page never answered.
func Render(resp *actions.Response, clip Clipboard) Status {
	if resp == nil {
		return Status{Message: StatusNoResponse, IsError: true}
	}
	if !resp.OK {
		return Status{Message: orDefault(resp.Error, "Action failed."), IsError: true}
	}

	switch {
	case resp.Transcript != "":
		if err := clip.WriteText(resp.Transcript); err != nil {
			return Status{Message: orDefault(err.Error(), "Unexpected error."), IsError: true}
		}
		return Status{Message: fmt.Sprintf("Transcript copied (%d chars).", utf8.RuneCountInString(resp.Transcript))}

	case resp.Draft != "":
		if err := clip.WriteText(resp.Draft); err != nil {
			return Status{Message: "Draft created, but clipboard copy failed."}
		}
		return Status{Message: "Draft copied to clipboard."}

	case resp.ManifestText != "":
		if err := clip.WriteText(resp.ManifestText); err != nil {
			return Status{Message: orDefault(resp.Message, "Action completed, but manifest copy failed."), IsError: true}
		}
		if resp.Message != "" {
			return Status{Message: resp.Message + " Manifest URLs copied."}
		}
		return Status{Message: "Manifest URLs copied."}

	case resp.Downloaded > 0:
		return Status{Message: fmt.Sprintf("Started %d download(s).", resp.Downloaded)}
	}

	return Status{Message: orDefault(resp.Message, "Done.")}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
