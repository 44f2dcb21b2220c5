package actions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/browserutility/internal/bridge"
	"thirdcoast.systems/browserutility/internal/discovery"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/page/pagetest"
	"thirdcoast.systems/browserutility/internal/settings"
	"thirdcoast.systems/browserutility/internal/transcript"
)

// helperStub records helper calls and answers per path.
type helperStub struct {
	mu      sync.Mutex
	calls   map[string][]map[string]string
	answers map[string]string
	status  map[string]int
}

func newHelperStub(t *testing.T) (*helperStub, *httptest.Server) {
	t.Helper()
	h := &helperStub{
		calls:   make(map[string][]map[string]string),
		answers: make(map[string]string),
		status:  make(map[string]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		h.mu.Lock()
		h.calls[r.URL.Path] = append(h.calls[r.URL.Path], body)
		answer, ok := h.answers[r.URL.Path]
		status := h.status[r.URL.Path]
		h.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error":"Not found"}`))
			return
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte(answer))
	}))
	t.Cleanup(srv.Close)
	return h, srv
}

func (h *helperStub) Calls(path string) []map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path]
}

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("media:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newManager(t *testing.T) *download.Manager {
	t.Helper()
	m := download.NewManager(t.TempDir(),
		download.WithPollInterval(10*time.Millisecond),
		download.WithWaitTimeout(5*time.Second),
	)
	t.Cleanup(m.Close)
	return m
}

func fakeOpener(p page.Page) PageOpener {
	return func(context.Context, string) (page.Page, error) { return p, nil }
}

func TestDispatch_Unsupported(t *testing.T) {
	d := New(Deps{})
	resp := d.Dispatch(context.Background(), Request{Action: "doSomethingElse"})
	require.False(t, resp.OK)
	require.Equal(t, "Unsupported action.", resp.Error)
}

func TestDispatch_PageActionWithoutPage(t *testing.T) {
	d := New(Deps{})
	resp := d.Dispatch(context.Background(), Request{Action: CopyYouTubeTranscript, PageURL: "https://www.youtube.com/watch?v=a"})
	require.False(t, resp.OK)
	require.Equal(t, "No response from page. Reload and try again.", resp.Error)
}

func TestDispatch_PageActionsCheckURLFirst(t *testing.T) {
	opened := 0
	d := New(Deps{Pages: func(context.Context, string) (page.Page, error) {
		opened++
		return nil, errors.New("tab unreachable")
	}})

	resp := d.Dispatch(context.Background(), Request{Action: CopyYouTubeTranscript, PageURL: "https://example.com/article"})
	require.False(t, resp.OK)
	require.Equal(t, "Open a YouTube watch page first.", resp.Error)

	resp = d.Dispatch(context.Background(), Request{Action: DraftXReply, PageURL: "https://example.com/article"})
	require.False(t, resp.OK)
	require.Equal(t, "Open X (x.com) to draft a reply.", resp.Error)

	resp = d.Dispatch(context.Background(), Request{Action: CopyYouTubeTranscript})
	require.Equal(t, "Open a YouTube watch page first.", resp.Error)

	require.Zero(t, opened)

	resp = d.Dispatch(context.Background(), Request{Action: DraftXReply, PageURL: "https://x.com/someone/status/1"})
	require.Equal(t, "No response from page. Reload and try again.", resp.Error)
	require.Equal(t, 1, opened)
}

func TestGenerateReplyDraft(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/responses", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model string `json:"model"`
			Input []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4o-mini", body.Model)
		prompt = body.Input[0].Content[0].Text
		_, _ = w.Write([]byte(`{"output_text":"  Thanks for sharing!  "}`))
	}))
	defer srv.Close()

	d := New(Deps{
		Settings:      settings.Static{OpenAIAPIKey: "sk-test", ReplyGuidelinesMarkdown: "  Be warm.  "},
		OpenAIBaseURL: srv.URL,
	})
	resp := d.Dispatch(context.Background(), Request{Action: GenerateReplyDraft, SourceText: "Shipping today"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Thanks for sharing!", resp.Draft)
	require.Contains(t, prompt, "Guidelines (markdown):\nBe warm.\n\nText to respond to:\nShipping today")

	resp = New(Deps{Settings: settings.Static{}}).Dispatch(context.Background(), Request{Action: GenerateReplyDraft})
	require.False(t, resp.OK)
	require.Equal(t, "Missing OpenAI API key. Add it in extension settings.", resp.Error)
}

func TestDownloadURL(t *testing.T) {
	media := newMediaServer(t)
	m := newManager(t)
	d := New(Deps{Downloads: m})

	resp := d.Dispatch(context.Background(), Request{Action: DownloadURL})
	require.False(t, resp.OK)
	require.Equal(t, "Missing URL to download.", resp.Error)

	resp = d.Dispatch(context.Background(), Request{Action: DownloadURL, URL: media.URL + "/v/clip.WEBM", FilenameHint: `My: "Clip"?`})
	require.True(t, resp.OK, resp.Error)
	require.NotZero(t, resp.DownloadID)

	item, err := m.Wait(context.Background(), resp.DownloadID)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(m.Root(), "BrowserUtility", "My Clip.webm"), item.Filename)
}

func TestDownloadAndMergeTracks_AutoMergeOff(t *testing.T) {
	media := newMediaServer(t)
	m := newManager(t)
	d := New(Deps{Downloads: m, Settings: settings.Static{}})

	resp := d.Dispatch(context.Background(), Request{Action: DownloadAndMergeTracks, VideoURL: media.URL + "/v.mp4"})
	require.False(t, resp.OK)
	require.Equal(t, "Missing video/audio track URLs.", resp.Error)

	resp = d.Dispatch(context.Background(), Request{
		Action:   DownloadAndMergeTracks,
		VideoURL: media.URL + "/videoplayback",
		AudioURL: media.URL + "/audioplayback",
		BaseName: "Talk",
	})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, 2, resp.Downloaded)
	require.NotNil(t, resp.Merged)
	require.False(t, *resp.Merged)
	require.Equal(t, "Downloaded separate video/audio tracks. Enable auto-merge in settings to combine automatically.", resp.Message)

	for _, name := range []string{"Talk.video.mp4", "Talk.audio.m4a"} {
		_, err := os.Stat(filepath.Join(m.Root(), "BrowserUtility", name))
		require.NoError(t, err, name)
	}
}

func TestDownloadAndMergeTracks_AutoMergeOn(t *testing.T) {
	media := newMediaServer(t)
	helper, helperSrv := newHelperStub(t)
	helper.answers["/merge"] = `{"ok":true,"output_path":"/out/Talk.merged.mp4"}`

	m := newManager(t)
	d := New(Deps{Downloads: m, Settings: settings.Static{AutoMergeYouTubeStreams: true, MergeServiceURL: helperSrv.URL + "/merge"}})

	resp := d.Dispatch(context.Background(), Request{
		Action:   DownloadAndMergeTracks,
		VideoURL: media.URL + "/v.webm",
		AudioURL: media.URL + "/a.weba",
		BaseName: "Talk",
	})
	require.True(t, resp.OK, resp.Error)
	require.True(t, *resp.Merged)
	require.Equal(t, "Downloaded separate tracks and merged them into a single MP4.", resp.Message)

	calls := helper.Calls("/merge")
	require.Len(t, calls, 1)
	require.Equal(t, filepath.Join(m.Root(), "BrowserUtility", "Talk.video.webm"), calls[0]["video_path"])
	require.Equal(t, filepath.Join(m.Root(), "BrowserUtility", "Talk.audio.weba"), calls[0]["audio_path"])
	require.Equal(t, "Talk.merged.mp4", calls[0]["output_path"])
}

func TestDownloadAndMergeTracks_Failures(t *testing.T) {
	media := newMediaServer(t)
	helper, helperSrv := newHelperStub(t)
	helper.answers["/merge"] = `ffmpeg exploded`
	helper.status["/merge"] = http.StatusInternalServerError

	d := New(Deps{Downloads: newManager(t), Settings: settings.Static{AutoMergeYouTubeStreams: true, MergeServiceURL: helperSrv.URL + "/merge"}})

	resp := d.Dispatch(context.Background(), Request{Action: DownloadAndMergeTracks, VideoURL: media.URL + "/v.mp4", AudioURL: media.URL + "/a.m4a"})
	require.False(t, resp.OK)
	require.Equal(t, "Merge service failed (500): ffmpeg exploded", resp.Error)

	resp = d.Dispatch(context.Background(), Request{Action: DownloadAndMergeTracks, VideoURL: media.URL + "/broken.mp4", AudioURL: media.URL + "/a.m4a"})
	require.False(t, resp.OK)
	require.True(t, strings.HasPrefix(resp.Error, "Download interrupted for "), resp.Error)
}

const transcriptHTML = `<html><head><title>Talk - YouTube</title></head><body>
<ytd-engagement-panel-section-list-renderer>
<ytd-transcript-renderer>
<ytd-transcript-segment-renderer><div id="segment-text">  Hello   there </div></ytd-transcript-segment-renderer>
<ytd-transcript-segment-renderer><div id="segment-text">General Kenobi</div></ytd-transcript-segment-renderer>
<ytd-transcript-segment-renderer><div id="segment-text">Hello there</div></ytd-transcript-segment-renderer>
</ytd-transcript-renderer>
</ytd-engagement-panel-section-list-renderer>
</body></html>`

func TestCopyYouTubeTranscript(t *testing.T) {
	snap, err := page.NewSnapshot("https://www.youtube.com/watch?v=abc", transcriptHTML)
	require.NoError(t, err)

	d := New(Deps{Pages: fakeOpener(snap), Transcript: transcript.Timing{PanelWait: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond}})
	resp := d.Dispatch(context.Background(), Request{Action: CopyYouTubeTranscript, PageURL: snap.URL()})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Hello there\nGeneral Kenobi", resp.Transcript)

	f := &pagetest.Fake{PageURL: "https://example.com/watch?v=abc"}
	resp = d.RunOnPage(context.Background(), CopyYouTubeTranscript, f)
	require.False(t, resp.OK)
	require.Equal(t, "Open a YouTube watch page first.", resp.Error)
	require.Zero(t, f.Queries)
}

func TestDraftXReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"Agreed."}]}]}`))
	}))
	defer srv.Close()

	d := New(Deps{Settings: settings.Static{OpenAIAPIKey: "k"}, OpenAIBaseURL: srv.URL})

	notX := &pagetest.Fake{PageURL: "https://netflix.com/title/1"}
	resp := d.RunOnPage(context.Background(), DraftXReply, notX)
	require.Equal(t, "Open X (x.com) to draft a reply.", resp.Error)

	empty := &pagetest.Fake{PageURL: "https://x.com/home"}
	resp = d.RunOnPage(context.Background(), DraftXReply, empty)
	require.Equal(t, "No selected text or tweet text found.", resp.Error)

	f := &pagetest.Fake{PageURL: "https://x.com/someone/status/1"}
	f.Set(`article [data-testid="tweetText"]`, pagetest.Texts("Ship it?")...)
	resp = d.RunOnPage(context.Background(), DraftXReply, f)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Agreed.", resp.Draft)
	require.Equal(t, "Draft generated.", resp.Message)

	f.Set(`div[role="textbox"][data-testid="tweetTextarea_0"]`, pagetest.Texts("")...)
	resp = d.RunOnPage(context.Background(), DraftXReply, f)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Draft inserted into composer.", resp.Message)
	require.Equal(t, "Agreed.", f.Inserted[`div[role="textbox"][data-testid="tweetTextarea_0"]`])
}

func linkElements(hrefs ...string) []pagetest.Element {
	out := make([]pagetest.Element, 0, len(hrefs))
	for _, h := range hrefs {
		out = append(out, pagetest.Element{Attrs: map[string]string{"href": h}})
	}
	return out
}

func TestDownloadPageVideo_DirectFiles(t *testing.T) {
	media := newMediaServer(t)
	m := newManager(t)
	d := New(Deps{Downloads: m})

	f := &pagetest.Fake{PageURL: media.URL + "/gallery", Resources: []string{"https://cdn/live.m3u8"}}
	f.Set("a[href]", linkElements("/a.mp4", "/b.webm?x=1", "/page.html")...)

	resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, 2, resp.Downloaded)
	require.Equal(t, "Started 2 download(s). Streaming manifests found.", resp.Message)
	require.Equal(t, []string{"https://cdn/live.m3u8"}, resp.ManifestCandidates)
	require.Equal(t, "https://cdn/live.m3u8", resp.ManifestText)

	require.Len(t, m.Items(), 2)
}

func TestDownloadPageVideo_NoURLs(t *testing.T) {
	d := New(Deps{Downloads: newManager(t)})
	resp := d.RunOnPage(context.Background(), DownloadPageVideo, &pagetest.Fake{PageURL: "https://example.com/"})
	require.False(t, resp.OK)
	require.Equal(t, "No video URLs discovered on this page.", resp.Error)
}

func TestDownloadPageVideo_ManifestHelper(t *testing.T) {
	helper, helperSrv := newHelperStub(t)
	helper.answers["/download_manifest"] = `{"ok":true,"message":"Manifest download completed via yt-dlp helper.","output_dir":"/dl"}`

	m := newManager(t)
	d := New(Deps{Downloads: m, Settings: settings.Static{MergeServiceURL: helperSrv.URL + "/merge"}})

	f := &pagetest.Fake{PageURL: "https://example.com/live", PageTitle: "Live show"}
	f.Set("a[href]", linkElements("https://cdn.example.com/master.m3u8")...)

	resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, 1, resp.Downloaded)
	require.Equal(t, "Manifest download completed via yt-dlp helper.", resp.Message)

	calls := helper.Calls("/download_manifest")
	require.Len(t, calls, 1)
	require.Equal(t, "https://cdn.example.com/master.m3u8", calls[0]["manifest_url"])
	require.Equal(t, "https://example.com/live", calls[0]["page_url"])
	require.Equal(t, "Live show", calls[0]["title_hint"])
	require.Equal(t, filepath.Join(m.Root(), "BrowserUtility"), calls[0]["output_dir"])
}

func TestDownloadPageVideo_AllHelpersFail(t *testing.T) {
	helper, helperSrv := newHelperStub(t)
	helper.answers["/download_manifest"] = `{"ok":false,"error":"yt-dlp failed for manifest"}`
	helper.status["/download_manifest"] = http.StatusInternalServerError
	helper.answers["/download_page"] = `{"ok":false,"error":"yt-dlp failed for page"}`
	helper.status["/download_page"] = http.StatusInternalServerError

	d := New(Deps{Downloads: newManager(t), Settings: settings.Static{MergeServiceURL: helperSrv.URL + "/merge"}})

	f := &pagetest.Fake{PageURL: "https://example.com/live"}
	f.Set("a[href]", linkElements("https://cdn/a.m3u8", "https://cdn/b.mpd")...)

	resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
	require.False(t, resp.OK)
	require.Equal(t, "No direct downloadable media found. Helper fallbacks failed: yt-dlp failed for manifest | yt-dlp failed for manifest | yt-dlp failed for page", resp.Error)

	pageCalls := helper.Calls("/download_page")
	require.Len(t, pageCalls, 1)
	require.Equal(t, "page-video", pageCalls[0]["title_hint"])
}

func youTubeFake(pr string) *pagetest.Fake {
	return &pagetest.Fake{
		PageURL:        "https://www.youtube.com/watch?v=abc",
		PageTitle:      "Talk - YouTube",
		PlayerResponse: json.RawMessage(pr),
	}
}

func TestDownloadPageVideo_YouTube(t *testing.T) {
	media := newMediaServer(t)
	disc := discovery.New(bridge.New(50 * time.Millisecond))

	t.Run("combined", func(t *testing.T) {
		m := newManager(t)
		d := New(Deps{Downloads: m, Discoverer: disc})
		f := youTubeFake(`{"videoDetails":{"title":"Big Talk"},"streamingData":{"formats":[{"mimeType":"video/mp4","bitrate":1,"url":"` + media.URL + `/videoplayback"}]}}`)

		resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
		require.True(t, resp.OK, resp.Error)
		require.Equal(t, 1, resp.Downloaded)
		require.Equal(t, "Started 1 combined download.", resp.Message)

		items := m.Items()
		require.Len(t, items, 1)
		require.Equal(t, filepath.Join(m.Root(), "BrowserUtility", "Big Talk.mp4"), items[0].Filename)
	})

	t.Run("split pair", func(t *testing.T) {
		m := newManager(t)
		d := New(Deps{Downloads: m, Discoverer: disc, Settings: settings.Static{}})
		f := youTubeFake(`{"videoDetails":{"title":"Big Talk"},"streamingData":{"adaptiveFormats":[
			{"mimeType":"video/webm","bitrate":10,"url":"` + media.URL + `/vid"},
			{"mimeType":"audio/webm","bitrate":5,"url":"` + media.URL + `/aud"}]}}`)

		resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
		require.True(t, resp.OK, resp.Error)
		require.Equal(t, 2, resp.Downloaded)
		require.False(t, *resp.Merged)
	})

	t.Run("helper fallback", func(t *testing.T) {
		helper, helperSrv := newHelperStub(t)
		helper.answers["/download_youtube"] = `{"ok":true,"message":"YouTube download completed via yt-dlp helper."}`

		d := New(Deps{Downloads: newManager(t), Discoverer: disc, Settings: settings.Static{MergeServiceURL: helperSrv.URL + "/merge"}})
		f := youTubeFake(`{"streamingData":{"adaptiveFormats":[{"mimeType":"video/mp4","signatureCipher":"s=xyz&url=https%3A%2F%2Fv%2Fa"}]}}`)

		resp := d.RunOnPage(context.Background(), DownloadPageVideo, f)
		require.True(t, resp.OK, resp.Error)
		require.Equal(t, "YouTube download completed via yt-dlp helper.", resp.Message)

		calls := helper.Calls("/download_youtube")
		require.Len(t, calls, 1)
		require.Equal(t, "https://www.youtube.com/watch?v=abc", calls[0]["video_url"])
		require.Equal(t, "Talk - YouTube", calls[0]["title_hint"])
	})

	t.Run("helper fallback fails", func(t *testing.T) {
		_, helperSrv := newHelperStub(t)
		d := New(Deps{Downloads: newManager(t), Discoverer: disc, Settings: settings.Static{MergeServiceURL: helperSrv.URL + "/merge"}})

		resp := d.RunOnPage(context.Background(), DownloadPageVideo, youTubeFake(`null`))
		require.False(t, resp.OK)
		require.True(t, strings.HasPrefix(resp.Error, "Could not find downloadable YouTube stream URLs on this page, and helper fallback failed"), resp.Error)
	})
}

func TestHelperActions_Validation(t *testing.T) {
	d := New(Deps{})
	for action, want := range map[string]string{
		DownloadYouTubeViaHelper:  "video_url is required",
		DownloadManifestViaHelper: "manifest_url is required",
		DownloadPageViaHelper:     "page_url is required",
	} {
		resp := d.Dispatch(context.Background(), Request{Action: action})
		require.False(t, resp.OK)
		require.Equal(t, want, resp.Error)
	}
}
