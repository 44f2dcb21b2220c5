package actions

import (
	"context"
	"net/http"

	"thirdcoast.systems/browserutility/internal/page"
	"thirdcoast.systems/browserutility/internal/page/rodpage"
)

// SnapshotOpener fetches the page over HTTP and queries the static HTML.
func SnapshotOpener(client *http.Client) PageOpener {
	return func(ctx context.Context, pageURL string) (page.Page, error) {
		return page.FetchSnapshot(ctx, client, pageURL)
	}
}

// RodOpener attaches to the tab showing pageURL in the browser at
// controlURL, opening one if none matches. An empty controlURL launches a
// headless browser per action.
func RodOpener(controlURL string) PageOpener {
	return func(ctx context.Context, pageURL string) (page.Page, error) {
		return rodpage.Open(ctx, rodpage.Options{ControlURL: controlURL, URL: pageURL})
	}
}
