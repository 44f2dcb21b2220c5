package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"thirdcoast.systems/browserutility/internal/settings"
	"thirdcoast.systems/browserutility/pkg/utils/markdown"
)

var (
	SettingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored settings",
	}

	settingsGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Print the settings (API key masked)",
		Args:  cobra.NoArgs,
		RunE:  runSettingsGet,
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set <key>=<value>...",
		Short: "Change one or more settings",
		Long: `Keys: openaiApiKey, openaiModel, replyGuidelinesMarkdown,
autoMergeYouTubeStreams, mergeServiceUrl. An empty value resets the key to its
default.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSettingsSet,
	}

	settingsGuidelinesCmd = &cobra.Command{
		Use:   "guidelines",
		Short: "Print the reply guidelines as plain text",
		Args:  cobra.NoArgs,
		RunE:  runSettingsGuidelines,
	}
)

func init() {
	RootCmd.AddCommand(SettingsCmd)
	SettingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsGuidelinesCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(s.Redacted(), "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected <key>=<value>, got %q", arg)
		}
		if err := applySetting(&s, strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	if err := a.store.Save(cmd.Context(), s.Normalized()); err != nil {
		return err
	}
	cmd.Println("Settings saved.")
	return nil
}

func runSettingsGuidelines(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	md := markdown.New(s.ReplyGuidelinesMarkdown)
	if md.IsBlank() {
		cmd.Println("No reply guidelines set.")
		return nil
	}
	cmd.Println(md.PlainText())
	return nil
}

func applySetting(s *settings.Settings, key, value string) error {
	switch key {
	case settings.KeyOpenAIAPIKey:
		s.OpenAIAPIKey = strings.TrimSpace(value)
	case settings.KeyOpenAIModel:
		s.OpenAIModel = strings.TrimSpace(value)
	case settings.KeyReplyGuidelinesMarkdown:
		s.ReplyGuidelinesMarkdown = value
	case settings.KeyMergeServiceURL:
		s.MergeServiceURL = strings.TrimSpace(value)
	case settings.KeyAutoMergeYouTubeStreams:
		if strings.TrimSpace(value) == "" {
			s.AutoMergeYouTubeStreams = false
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.AutoMergeYouTubeStreams = b
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
