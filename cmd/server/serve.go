package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/config"
	"ytdlpanel/internal/download"
	"ytdlpanel/internal/fileserve"
	"ytdlpanel/internal/handler"
	"ytdlpanel/internal/metrics"
	"ytdlpanel/internal/platform"
	"ytdlpanel/internal/storage"
	"ytdlpanel/internal/websocket"
	"ytdlpanel/internal/workspace"
)

func runServer(cfg *config.Config) error {
	extractor, err := platform.CheckExtractor(cfg.YTDLP.Binary)
	if err != nil {
		slog.Error("yt-dlp is required", "error", err)
		fmt.Fprintln(os.Stderr, platform.InstallRemedy)
		return err
	}
	ffmpeg := platform.NewDetector(cfg.FFmpeg.Binary)
	if !ffmpeg.Available() {
		slog.Warn("ffmpeg not found, metadata, audio conversion, subtitles and thumbnails are disabled")
	}

	ws := workspace.New(cfg.Workspace.BaseDir, cfg.Workspace.Prefix)
	ws.SweepStale()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := storage.New(cfg.History.Capacity)
	hub := websocket.NewHub()
	dl := download.New(download.NewYTDLP(extractor, cfg.YTDLP.ProgressInterval), ffmpeg)
	orch := batch.New(dl, ws, store, metrics.New(reg))
	session := batch.NewSession(orch, batch.RunConfig{
		MaxConcurrency: cfg.Batch.MaxConcurrency,
		PerItemTimeout: cfg.Batch.ItemTimeout,
		BatchTimeout:   cfg.Batch.Timeout,
	}, hub)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx)
	go hub.StartTicker(ctx, 10*time.Second)

	r := handler.NewRouter(handler.Deps{
		Session:        session,
		History:        store,
		HistoryLimit:   cfg.History.DisplayLimit,
		Hub:            hub,
		Files:          fileserve.New(cfg.Serve.InlineLimit, nil),
		Workspace:      ws,
		FFmpeg:         ffmpeg,
		Extractor:      extractor,
		PreviewClient:  &http.Client{Timeout: cfg.Preview.Timeout},
		PreviewTimeout: cfg.Preview.Timeout,
		Gatherer:       reg,
		StaticDir:      cfg.StaticDir,
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		if err := session.Close(ctx); err != nil {
			slog.Warn("Batch did not stop cleanly", "error", err)
		}
		stop()
		done <- true
	}()

	slog.Info("Server starting", "port", cfg.Port, "yt-dlp", extractor, "ffmpeg", ffmpeg.Available())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to start server", "error", err)
		return err
	}
	<-done
	slog.Info("Server exited")
	return nil
}
