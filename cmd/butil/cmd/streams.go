package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"thirdcoast.systems/browserutility/internal/discovery"
	"thirdcoast.systems/browserutility/internal/videoid"
)

var StreamsCmd = &cobra.Command{
	Use:   "streams <page url>",
	Short: "List the media a page exposes without downloading anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runStreams,
}

func init() {
	RootCmd.AddCommand(StreamsCmd)
}

func runStreams(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.opener()(ctx, args[0])
	if err != nil {
		return err
	}
	if c, ok := p.(io.Closer); ok {
		defer c.Close()
	}

	if videoid.IsYouTubeWatchURL(p.URL()) {
		info, ok, err := discovery.New(nil).YouTubeStreams(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("No YouTube streams resolved.")
			return nil
		}
		cmd.Printf("title:    %s\n", info.Title)
		if info.VideoID != "" {
			cmd.Printf("video id: %s\n", info.VideoID)
		}
		if info.CombinedURL != "" {
			cmd.Printf("combined: %s\n", info.CombinedURL)
		}
		if info.HasPair() {
			cmd.Printf("video:    %s\naudio:    %s\n", info.VideoOnlyURL, info.AudioOnlyURL)
		}
		return nil
	}

	urls, err := discovery.VideoURLs(ctx, p)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		cmd.Println("No video URLs discovered on this page.")
		return nil
	}
	for _, u := range urls {
		kind := "other"
		if discovery.IsDirectFile(u) {
			kind = "file"
		}
		cmd.Printf("%-8s %s\n", kind, u)
	}
	for _, m := range discovery.ManifestCandidates(ctx, p, urls) {
		cmd.Printf("%-8s %s\n", "manifest", m)
	}
	return nil
}
