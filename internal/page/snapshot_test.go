package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/browserutility/internal/bridge"
)

const fixtureHTML = `<!doctype html>
<html><head><title> Fixture Page </title></head>
<body>
  <button aria-label="Show transcript">Show</button>
  <div role="textbox" data-testid="tweetTextarea_0">old</div>
  <ul><li class="item">one</li><li class="item"></li><li class="item">three</li></ul>
  <video src="/clip.mp4"><source src="alt.webm"></video>
  <script>var ytInitialPlayerResponse = {"videoDetails":{"title":"T"}};</script>
</body></html>`

func TestSnapshot_Queries(t *testing.T) {
	ctx := context.Background()
	s, err := NewSnapshot("https://example.com/page", fixtureHTML, WithSelection("picked"), WithResources([]string{"https://cdn/x.m3u8"}))
	require.NoError(t, err)

	require.Equal(t, "https://example.com/page", s.URL())

	title, err := s.Title(ctx)
	require.NoError(t, err)
	require.Equal(t, "Fixture Page", title)

	texts, err := s.Texts(ctx, "li.item")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "", "three"}, texts)

	srcs, err := s.Attrs(ctx, "video", "src")
	require.NoError(t, err)
	require.Equal(t, []string{"/clip.mp4"}, srcs)

	sel, err := s.Selection(ctx)
	require.NoError(t, err)
	require.Equal(t, "picked", sel)

	res, err := s.ResourceURLs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://cdn/x.m3u8"}, res)
}

func TestSnapshot_ClickAndInsert(t *testing.T) {
	ctx := context.Background()
	s, err := NewSnapshot("https://x.com/home", fixtureHTML)
	require.NoError(t, err)

	ok, err := s.Click(ctx, `button[aria-label*="transcript" i]`, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Click(ctx, "li.item", regexp.MustCompile(`(?i)four`))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.InsertText(ctx, `div[role="textbox"][data-testid="tweetTextarea_0"]`, "new draft")
	require.NoError(t, err)
	require.True(t, ok)

	texts, err := s.Texts(ctx, `div[role="textbox"]`)
	require.NoError(t, err)
	require.Equal(t, []string{"new draft"}, texts)

	ok, err = s.InsertText(ctx, "textarea.missing", "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshot_PostPlayerResponse(t *testing.T) {
	s, err := NewSnapshot("https://www.youtube.com/watch?v=abc", fixtureHTML)
	require.NoError(t, err)

	b := bridge.New(time.Second)
	payload, err := b.Request(context.Background(), func(ctx context.Context, channel string) error {
		return s.PostPlayerResponse(ctx, channel, b.Deliver)
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"videoDetails":{"title":"T"}}`, string(payload))

	empty, err := NewSnapshot("https://www.youtube.com/watch?v=abc", "<html></html>")
	require.NoError(t, err)
	payload, err = b.Request(context.Background(), func(ctx context.Context, channel string) error {
		return empty.PostPlayerResponse(ctx, channel, b.Deliver)
	})
	require.NoError(t, err)
	require.Nil(t, payload)
}

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new", http.StatusFound)
		case "/new":
			require.NotEmpty(t, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(fixtureHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := FetchSnapshot(context.Background(), srv.Client(), srv.URL+"/old")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/new", s.URL())

	_, err = FetchSnapshot(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	s, err := NewSnapshot("https://example.com", fixtureHTML)
	require.NoError(t, err)

	ok, err := WaitFor(ctx, s, 50*time.Millisecond, 10*time.Millisecond, "nope", "li.item")
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Now()
	ok, err = WaitFor(ctx, s, 60*time.Millisecond, 10*time.Millisecond, "nope")
	require.NoError(t, err)
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second)
}
