// Package actions routes named actions to the content and background logic
// and always answers with exactly one {ok, ...} response.
package actions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"thirdcoast.systems/browserutility/internal/discovery"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/metrics"
	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/reply"
	"thirdcoast.systems/browserutility/internal/settings"
	"thirdcoast.systems/browserutility/internal/transcript"
	"thirdcoast.systems/browserutility/internal/videoid"
)

// Action names.
const (
	GenerateReplyDraft        = "generateReplyDraft"
	DownloadURL               = "downloadUrl"
	DownloadAndMergeTracks    = "downloadAndMergeTracks"
	CopyYouTubeTranscript     = "copyYouTubeTranscript"
	DraftXReply               = "draftXReply"
	DownloadPageVideo         = "downloadPageVideo"
	DownloadYouTubeViaHelper  = "downloadYouTubeViaHelper"
	DownloadManifestViaHelper = "downloadManifestViaHelper"
	DownloadPageViaHelper     = "downloadPageViaHelper"
)

const DefaultSubfolder = "BrowserUtility"

var (
	ErrUnsupported = errors.New("Unsupported action.")
	ErrNoPage      = errors.New("No response from page. Reload and try again.")
)

// Request carries an action and whichever fields it reads.
type Request struct {
	Action string `json:"action"`

	// PageURL is the tab content actions run against, and the target of
	// the manifest referer and page helper.
	PageURL string `json:"pageUrl,omitempty"`

	SourceText   string `json:"sourceText,omitempty"`
	URL          string `json:"url,omitempty"`
	FilenameHint string `json:"filenameHint,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	BaseName     string `json:"baseName,omitempty"`
	ManifestURL  string `json:"manifestUrl,omitempty"`
	TitleHint    string `json:"titleHint,omitempty"`
}

type Response struct {
	OK                 bool     `json:"ok"`
	Error              string   `json:"error,omitempty"`
	Transcript         string   `json:"transcript,omitempty"`
	Draft              string   `json:"draft,omitempty"`
	Message            string   `json:"message,omitempty"`
	Downloaded         int      `json:"downloaded,omitempty"`
	Merged             *bool    `json:"merged,omitempty"`
	DownloadID         int64    `json:"downloadId,omitempty"`
	OutputPath         string   `json:"outputPath,omitempty"`
	OutputDir          string   `json:"outputDir,omitempty"`
	ManifestCandidates []string `json:"manifestCandidates,omitempty"`
	ManifestText       string   `json:"manifestText,omitempty"`
}

// PageOpener attaches to the tab at pageURL. Pages implementing io.Closer
// are closed when the action finishes.
type PageOpener func(ctx context.Context, pageURL string) (page.Page, error)

type Deps struct {
	Settings  settings.Source
	Downloads *download.Manager
	Pages     PageOpener

	// Discoverer defaults to one with its own bridge.
	Discoverer *discovery.Discoverer
	// Subfolder prefixes every download name; defaults to BrowserUtility.
	Subfolder     string
	OpenAIBaseURL string
	Transcript    transcript.Timing
}

type Dispatcher struct {
	settings      settings.Source
	downloads     *download.Manager
	pages         PageOpener
	discoverer    *discovery.Discoverer
	subfolder     string
	openAIBaseURL string
	timing        transcript.Timing
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		settings:      deps.Settings,
		downloads:     deps.Downloads,
		pages:         deps.Pages,
		discoverer:    deps.Discoverer,
		subfolder:     deps.Subfolder,
		openAIBaseURL: deps.OpenAIBaseURL,
		timing:        deps.Transcript,
	}
	if d.settings == nil {
		d.settings = settings.Static(settings.Defaults())
	}
	if d.discoverer == nil {
		d.discoverer = discovery.New(nil)
	}
	if d.subfolder == "" {
		d.subfolder = DefaultSubfolder
	}
	return d
}

// Dispatch runs req and converts any failure into {ok:false, error}.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	start := time.Now()

	resp, err := d.run(ctx, req)
	metrics.ActionsTotal.WithLabelValues(metricName(req.Action), metrics.Outcome(err)).Inc()
	if err != nil {
		slog.Warn("action failed", "action", req.Action, "error", err, "elapsed", time.Since(start))
		return Response{OK: false, Error: errorMessage(err)}
	}

	resp.OK = true
	slog.Info("action completed", "action", req.Action, "message", resp.Message, "elapsed", time.Since(start))
	return resp
}

func (d *Dispatcher) run(ctx context.Context, req Request) (Response, error) {
	switch req.Action {
	case GenerateReplyDraft:
		draft, err := d.generateReplyDraft(ctx, req.SourceText)
		return Response{Draft: draft}, err
	case DownloadURL:
		id, err := d.downloadURL(ctx, req.URL, req.FilenameHint)
		return Response{DownloadID: id}, err
	case DownloadAndMergeTracks:
		return d.downloadAndMergeTracks(ctx, req.VideoURL, req.AudioURL, req.BaseName)
	case DownloadYouTubeViaHelper:
		return d.youTubeViaHelper(ctx, req.VideoURL, req.TitleHint)
	case DownloadManifestViaHelper:
		return d.manifestViaHelper(ctx, req.ManifestURL, req.TitleHint, req.PageURL)
	case DownloadPageViaHelper:
		return d.pageViaHelper(ctx, req.PageURL, req.TitleHint)
	case CopyYouTubeTranscript:
		if !videoid.IsYouTubeWatchURL(req.PageURL) {
			return Response{}, transcript.ErrNotWatchPage
		}
		return d.withPage(ctx, req.PageURL, d.copyYouTubeTranscript)
	case DraftXReply:
		if !videoid.IsXURL(req.PageURL) {
			return Response{}, reply.ErrNotX
		}
		return d.withPage(ctx, req.PageURL, d.draftXReply)
	case DownloadPageVideo:
		return d.withPage(ctx, req.PageURL, d.downloadPageVideo)
	default:
		return Response{}, ErrUnsupported
	}
}

func (d *Dispatcher) withPage(ctx context.Context, pageURL string, fn func(context.Context, page.Page) (Response, error)) (Response, error) {
	if d.pages == nil || pageURL == "" {
		return Response{}, ErrNoPage
	}

	p, err := d.pages(ctx, pageURL)
	if err != nil {
		slog.Warn("could not attach to page", "url", pageURL, "error", err)
		return Response{}, ErrNoPage
	}
	if c, ok := p.(io.Closer); ok {
		defer c.Close()
	}
	return fn(ctx, p)
}

// borrowed hides Close so withPage leaves caller-owned pages open.
type borrowed struct{ page.Page }

// RunOnPage runs a content action against a page the caller already holds.
func (d *Dispatcher) RunOnPage(ctx context.Context, action string, p page.Page) Response {
	local := *d
	local.pages = func(context.Context, string) (page.Page, error) { return borrowed{p}, nil }
	return local.Dispatch(ctx, Request{Action: action, PageURL: p.URL()})
}

func metricName(action string) string {
	switch action {
	case GenerateReplyDraft, DownloadURL, DownloadAndMergeTracks, CopyYouTubeTranscript, DraftXReply,
		DownloadPageVideo, DownloadYouTubeViaHelper, DownloadManifestViaHelper, DownloadPageViaHelper:
		return action
	default:
		return "unknown"
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Action failed."
}

func boolPtr(b bool) *bool { return &b }
