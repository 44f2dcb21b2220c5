// Package cmd implements the butil command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel  string
	printOnly bool
	livePages bool

	RootCmd = &cobra.Command{
		Use:   "butil",
		Short: "Browser utility actions from the terminal",
		Long: `butil runs the browser utility actions against a page: copy a YouTube
transcript, draft a reply to an X post, or find and download the videos on a
page. Pages are fetched as static snapshots unless --control-url points at a
running Chromium (or --live launches one).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), logLevel); err != nil {
				return err
			}
			return bindFlags(cmd)
		},
	}
)

func init() {
	RootCmd.SetOut(os.Stdout)

	flags := RootCmd.PersistentFlags()
	flags.String("control-url", "", "DevTools websocket URL of a running Chromium")
	flags.String("database", "", "settings database (sqlite path or postgres URL)")
	flags.String("download-dir", "", "directory downloads are saved under")
	flags.BoolVar(&livePages, "live", false, "launch a headless browser instead of fetching page snapshots")
	flags.BoolVar(&printOnly, "print", false, "print results instead of copying them to the clipboard")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// bindFlags maps flags onto the configuration keys LoadConfig reads. It runs
// per invocation since viper.Reset drops earlier bindings.
func bindFlags(cmd *cobra.Command) error {
	for flag, key := range map[string]string{
		"control-url":  "CHROME_CONTROL_URL",
		"database":     "DATABASE_DSN",
		"download-dir": "DOWNLOAD_DIR",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

func setupLogging(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "butil",
	})
	slog.SetDefault(slog.New(logger))
	return nil
}
