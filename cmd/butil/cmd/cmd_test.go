package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/settings"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	err := RootCmd.Execute()
	return out.String(), err
}

func useTempStore(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_DSN", filepath.Join(dir, "settings.db"))
	t.Setenv("DOWNLOAD_DIR", filepath.Join(dir, "downloads"))
}

func TestApplySetting(t *testing.T) {
	s := settings.Defaults()

	require.NoError(t, applySetting(&s, settings.KeyOpenAIModel, " gpt-test "))
	require.Equal(t, "gpt-test", s.OpenAIModel)

	require.NoError(t, applySetting(&s, settings.KeyAutoMergeYouTubeStreams, "true"))
	require.True(t, s.AutoMergeYouTubeStreams)
	require.NoError(t, applySetting(&s, settings.KeyAutoMergeYouTubeStreams, ""))
	require.False(t, s.AutoMergeYouTubeStreams)
	require.Error(t, applySetting(&s, settings.KeyAutoMergeYouTubeStreams, "maybe"))

	require.NoError(t, applySetting(&s, settings.KeyReplyGuidelinesMarkdown, "  keep spacing "))
	require.Equal(t, "  keep spacing ", s.ReplyGuidelinesMarkdown)

	err := applySetting(&s, "theme", "dark")
	require.EqualError(t, err, `unknown setting "theme"`)
}

func TestSettingsCommands(t *testing.T) {
	useTempStore(t)

	out, err := execute(t, "settings", "set", "openaiModel=gpt-test", "autoMergeYouTubeStreams=true", "openaiApiKey=sk-abcdefghijyz")
	require.NoError(t, err, out)
	require.Contains(t, out, "Settings saved.")

	out, err = execute(t, "settings", "get")
	require.NoError(t, err, out)
	require.Contains(t, out, `"openaiModel": "gpt-test"`)
	require.Contains(t, out, `"autoMergeYouTubeStreams": true`)
	require.Contains(t, out, `"openaiApiKey": "sk-******yz"`)

	_, err = execute(t, "settings", "set", "no-equals-sign")
	require.Error(t, err)

	out, err = execute(t, "settings", "set", "replyGuidelinesMarkdown=Be **brief**.")
	require.NoError(t, err, out)
	out, err = execute(t, "settings", "guidelines")
	require.NoError(t, err, out)
	require.Contains(t, out, "Be brief.")
}

func TestPairCommands(t *testing.T) {
	useTempStore(t)

	out, err := execute(t, "pair", "list")
	require.NoError(t, err, out)
	require.Contains(t, out, "No pairing tokens.")

	out, err = execute(t, "pair", "issue", "laptop")
	require.NoError(t, err, out)
	require.Contains(t, out, "Issued token")

	out, err = execute(t, "pair", "list")
	require.NoError(t, err, out)
	require.Contains(t, out, "laptop")
	require.Contains(t, out, "never")
}

func TestPageActionsAreGated(t *testing.T) {
	_, err := execute(t, "transcript", "https://example.com/watch?v=abc")
	require.EqualError(t, err, "Available on YouTube watch pages.")

	_, err = execute(t, "reply", "https://netflix.com/title/1")
	require.EqualError(t, err, "Available on x.com pages.")
}

func TestDescribeItem(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := describeItem(download.Item{
		Filename:      "/dl/clip.mp4",
		State:         download.StateComplete,
		BytesReceived: 2_000_000,
		StartTime:     start,
		EndTime:       start.Add(3 * time.Second),
	})
	require.True(t, strings.HasPrefix(got, "  /dl/clip.mp4 (2.0 MB, "), got)

	got = describeItem(download.Item{State: download.StateInterrupted, Error: "HTTP 410"})
	require.Equal(t, "  (unknown file) interrupted: HTTP 410", got)

	got = describeItem(download.Item{Filename: "a.mp4", State: download.StateInProgress})
	require.Equal(t, "  a.mp4 in progress", got)
}
