package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.design/x/clipboard"
	"thirdcoast.systems/browserutility/internal/actions"
	"thirdcoast.systems/browserutility/internal/application"
	"thirdcoast.systems/browserutility/internal/config"
	"thirdcoast.systems/browserutility/internal/db"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/popup"
	"thirdcoast.systems/browserutility/internal/settings"
)

// app holds what every subcommand needs: configuration and the settings
// store.
type app struct {
	conf  *config.Config
	dbc   *db.DatabaseConnection
	store *settings.Store
}

func openApp(ctx context.Context) (*app, error) {
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	dbc, err := application.OpenDatabase(ctx, *conf)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}

	enc, err := application.InitEncryptionManager(*conf)
	if err != nil {
		_ = dbc.Close()
		return nil, err
	}

	return &app{conf: conf, dbc: dbc, store: settings.NewStore(dbc, enc)}, nil
}

func (a *app) Close() error {
	return a.dbc.Close()
}

func (a *app) opener() actions.PageOpener {
	if a.conf.ChromeControlURL != "" || livePages {
		return actions.RodOpener(a.conf.ChromeControlURL)
	}
	return actions.SnapshotOpener(&http.Client{Timeout: 30 * time.Second})
}

func (a *app) downloads() *download.Manager {
	return download.NewManager(a.conf.DownloadDir,
		download.WithPollInterval(a.conf.DownloadPollInterval),
		download.WithWaitTimeout(a.conf.DownloadTimeout),
	)
}

func (a *app) dispatcher(downloads *download.Manager) *actions.Dispatcher {
	return actions.New(actions.Deps{
		Settings:      a.store,
		Downloads:     downloads,
		Pages:         a.opener(),
		Subfolder:     a.conf.DownloadSubfolder,
		OpenAIBaseURL: a.conf.OpenAIBaseURL,
	})
}

var clipboardInit = sync.OnceValue(clipboard.Init)

// systemClipboard writes to the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	if err := clipboardInit(); err != nil {
		return fmt.Errorf("clipboard unavailable: %w", err)
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// clipboardFor prints instead of copying when --print is set.
func clipboardFor(w io.Writer) popup.Clipboard {
	if printOnly {
		return popup.ClipboardFunc(func(text string) error {
			_, err := fmt.Fprintln(w, text)
			return err
		})
	}
	return systemClipboard{}
}
