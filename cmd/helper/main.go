package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thirdcoast.systems/browserutility/cmd/helper/handlers/media_api"
	"thirdcoast.systems/browserutility/cmd/helper/internal/server"
	"thirdcoast.systems/browserutility/internal/actions"
	"thirdcoast.systems/browserutility/internal/application"
	"thirdcoast.systems/browserutility/internal/config"
	"thirdcoast.systems/browserutility/internal/download"
	"thirdcoast.systems/browserutility/internal/pairing"
	"thirdcoast.systems/browserutility/internal/settings"
	"thirdcoast.systems/browserutility/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting media helper")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dbc, err := application.OpenDatabase(ctx, *conf)
	if err != nil {
		slog.Error("failed to open settings database", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	encMgr, err := application.InitEncryptionManager(*conf)
	if err != nil {
		slog.Error("failed to initialize encryption manager", "error", err)
		os.Exit(1)
	}

	store := settings.NewStore(dbc, encMgr)

	downloads := download.NewManager(conf.DownloadDir,
		download.WithPollInterval(conf.DownloadPollInterval),
		download.WithWaitTimeout(conf.DownloadTimeout),
	)
	defer downloads.Close()

	opener := actions.SnapshotOpener(&http.Client{Timeout: 30 * time.Second})
	if conf.ChromeControlURL != "" {
		slog.Info("Using live browser pages", "control_url", conf.ChromeControlURL)
		opener = actions.RodOpener(conf.ChromeControlURL)
	}

	dispatcher := actions.New(actions.Deps{
		Settings:      store,
		Downloads:     downloads,
		Pages:         opener,
		Subfolder:     conf.DownloadSubfolder,
		OpenAIBaseURL: conf.OpenAIBaseURL,
	})

	yt := ytdlp.New()
	yt.OnLine = media_api.LogOutput
	if conf.YtDlpPath != "" {
		yt.Path = conf.YtDlpPath
	}
	ytVersion := probeYtDlpVersion(ctx, yt)

	var pairSvc *pairing.Service
	if conf.RequirePairing {
		pairSvc = pairing.NewService(dbc)
		slog.Info("Pairing token required on /api routes")
	}

	srv := server.New(server.Deps{
		Settings:   store,
		Dispatcher: dispatcher,
		Pairing:    pairSvc,
		FFmpegPath: conf.FFmpegPath,
		Helper: media_api.HelperDeps{
			Downloader: yt,
			Version:    ytVersion,
			DefaultDir: conf.DownloadRoot(),
		},
		AllowedExtensionIDs: conf.AllowedClientIDs(),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Media helper listening",
		"addr", conf.Addr(),
		"endpoints", "/merge, /download_youtube, /download_manifest, /download_page, /api",
		"yt_dlp", yt.PathOrDefault(),
		"yt_dlp_version", ytVersion,
	)
	if err := srv.Start(conf.Addr()); err != nil {
		if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func probeYtDlpVersion(ctx context.Context, yt *ytdlp.Client) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	v, err := yt.Version(ctx)
	if err != nil || v == "" {
		slog.Warn("could not determine yt-dlp version", "path", yt.PathOrDefault(), "error", err)
		return "unknown"
	}
	return v
}
