package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"thirdcoast.systems/browserutility/internal/actions"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/popup"
	"thirdcoast.systems/browserutility/pkg/utils/format"
)

var (
	downloadName string
	tracksVideo  string
	tracksAudio  string
	tracksName   string
	draftText    string

	TranscriptCmd = &cobra.Command{
		Use:   "transcript <youtube watch url>",
		Short: "Copy the transcript of a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPageAction(cmd, actions.CopyYouTubeTranscript, args[0])
		},
	}

	ReplyCmd = &cobra.Command{
		Use:   "reply <x.com post url>",
		Short: "Draft a reply to an X post and insert it into the composer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPageAction(cmd, actions.DraftXReply, args[0])
		},
	}

	VideosCmd = &cobra.Command{
		Use:     "videos <page url>",
		Aliases: []string{"find-videos"},
		Short:   "Find and download the videos on a page",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPageAction(cmd, actions.DownloadPageVideo, args[0])
		},
	}

	DraftCmd = &cobra.Command{
		Use:   "draft",
		Short: "Draft a reply to the given text (--text, or stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := draftText
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			return runAction(cmd, actions.Request{Action: actions.GenerateReplyDraft, SourceText: text})
		},
	}

	DownloadCmd = &cobra.Command{
		Use:   "download <url>",
		Short: "Download a single file into the download folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, actions.Request{Action: actions.DownloadURL, URL: args[0], FilenameHint: downloadName})
		},
	}

	TracksCmd = &cobra.Command{
		Use:   "tracks",
		Short: "Download a separate video and audio track and merge them when auto-merge is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, actions.Request{
				Action:   actions.DownloadAndMergeTracks,
				VideoURL: tracksVideo,
				AudioURL: tracksAudio,
				BaseName: tracksName,
			})
		},
	}
)

func init() {
	RootCmd.AddCommand(TranscriptCmd, ReplyCmd, VideosCmd, DraftCmd, DownloadCmd, TracksCmd)

	DraftCmd.Flags().StringVarP(&draftText, "text", "t", "", "post text to reply to")
	DownloadCmd.Flags().StringVarP(&downloadName, "name", "n", "", "filename hint")

	flags := TracksCmd.Flags()
	flags.StringVar(&tracksVideo, "video", "", "video-only track URL")
	flags.StringVar(&tracksAudio, "audio", "", "audio-only track URL")
	flags.StringVarP(&tracksName, "name", "n", "", "base filename")
}

// runPageAction gates action on the page URL the way the popup does.
func runPageAction(cmd *cobra.Command, action, pageURL string) error {
	if ok, why := popup.Allowed(action, pageURL); !ok {
		return errors.New(why)
	}
	return runAction(cmd, actions.Request{Action: action, PageURL: pageURL})
}

func runAction(cmd *cobra.Command, req actions.Request) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	downloads := a.downloads()
	defer downloads.Close()

	cmd.PrintErrln(popup.StatusWorking)
	resp := a.dispatcher(downloads).Dispatch(ctx, req)

	status := popup.Render(&resp, clipboardFor(cmd.OutOrStdout()))
	if status.IsError {
		return errors.New(status.Message)
	}
	cmd.Println(status.Message)

	return waitForDownloads(cmd, downloads)
}

// waitForDownloads keeps the process alive until downloads started by the
// action settle, then lists them.
func waitForDownloads(cmd *cobra.Command, downloads *download.Manager) error {
	var pending []int64
	for _, item := range downloads.Items() {
		if item.State == download.StateInProgress {
			pending = append(pending, item.ID)
		}
	}

	var waitErr error
	if len(pending) > 0 {
		cmd.PrintErrf("Waiting for %d download(s)...\n", len(pending))
		_, waitErr = downloads.WaitAll(cmd.Context(), pending...)
	}

	for _, item := range downloads.Items() {
		cmd.Println(describeItem(item))
	}
	return waitErr
}

func describeItem(item download.Item) string {
	switch item.State {
	case download.StateComplete:
		return fmt.Sprintf("  %s (%s, %s)", item.Filename, humanize.Bytes(uint64(item.BytesReceived)),
			format.Elapsed(item.EndTime.Sub(item.StartTime)))
	case download.StateInterrupted:
		return fmt.Sprintf("  %s interrupted: %s", orUnknown(item.Filename), item.Error)
	default:
		return fmt.Sprintf("  %s %s", orUnknown(item.Filename), strings.ReplaceAll(string(item.State), "_", " "))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown file)"
	}
	return s
}
