package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/config"
	"ytdlpanel/internal/download"
	"ytdlpanel/internal/models"
	"ytdlpanel/internal/platform"
	"ytdlpanel/internal/storage"
	"ytdlpanel/internal/workspace"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "ytdlpanel",
		Short:         "Browser control panel for yt-dlp batch downloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Config error:", err)
				return err
			}
			cfg = c
			SetupLogger(cfg.Level())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a yaml config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web control panel",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cfg)
			},
		},
		newBatchCmd(&cfg),
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove workspaces left behind by earlier runs",
			RunE: func(cmd *cobra.Command, args []string) error {
				n := workspace.New(cfg.Workspace.BaseDir, cfg.Workspace.Prefix).SweepStale()
				fmt.Printf("Removed %d stale workspace(s) from %s\n", n, cfg.Workspace.BaseDir)
				return nil
			},
		},
	)
	return root
}

type batchFlags struct {
	mode     string
	quality  string
	codec    string
	subs     bool
	thumb    bool
	metadata bool
	maxSize  string
	playlist string
	parallel int
	timeout  time.Duration
	cleanup  bool
}

func newBatchCmd(cfg **config.Config) *cobra.Command {
	var f batchFlags

	cmd := &cobra.Command{
		Use:   "batch <url>...",
		Short: "Download one batch of URLs from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), *cfg, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", string(models.MediaAudioVideo), "audio_video, audio_only or video_only")
	fl.StringVar(&f.quality, "quality", string(models.QualityBest), "best, 1080p, 720p, 480p or 360p")
	fl.StringVar(&f.codec, "codec", string(models.CodecMP3), "audio codec for audio_only: mp3, aac, m4a, opus or flac")
	fl.BoolVar(&f.subs, "subs", false, "download English subtitles")
	fl.BoolVar(&f.thumb, "thumbnail", false, "download thumbnails")
	fl.BoolVar(&f.metadata, "metadata", false, "embed metadata")
	fl.StringVar(&f.maxSize, "max-size", "No Limit", "100MB, 500MB, 1GB, 2GB or a byte count")
	fl.StringVar(&f.playlist, "playlist", "", "playlist range as start or start:end")
	fl.IntVar(&f.parallel, "parallel", 0, "parallel downloads (1-10), defaults to config")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-item timeout, defaults to config")
	fl.BoolVar(&f.cleanup, "cleanup", false, "remove the workspace once the summary is printed")
	return cmd
}

func (f batchFlags) options() (models.OptionSet, error) {
	opts := models.OptionSet{
		MediaMode:     models.MediaMode(f.mode),
		QualityCap:    models.Quality(f.quality),
		AudioCodec:    models.AudioCodec(f.codec),
		WantSubtitles: f.subs,
		WantThumbnail: f.thumb,
		EmbedMetadata: f.metadata,
	}
	var err error
	if opts.MaxFileSizeBytes, err = models.ParseMaxSize(f.maxSize); err != nil {
		return opts, err
	}
	if opts.PlaylistRange, err = models.ParsePlaylistRange(f.playlist); err != nil {
		return opts, err
	}
	return opts, nil
}

func runBatch(ctx context.Context, cfg *config.Config, f batchFlags, urls []string) error {
	opts, err := f.options()
	if err != nil {
		return err
	}

	extractor, err := platform.CheckExtractor(cfg.YTDLP.Binary)
	if err != nil {
		fmt.Fprintln(os.Stderr, platform.InstallRemedy)
		return err
	}
	ffmpeg := platform.NewDetector(cfg.FFmpeg.Binary)
	if !ffmpeg.Available() {
		slog.Warn("ffmpeg not found, metadata, audio conversion, subtitles and thumbnails are disabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := workspace.New(cfg.Workspace.BaseDir, cfg.Workspace.Prefix)
	dl := download.New(download.NewYTDLP(extractor, cfg.YTDLP.ProgressInterval), ffmpeg)
	orch := batch.New(dl, ws, storage.New(cfg.History.Capacity), nil)

	run := batch.RunConfig{
		MaxConcurrency: cfg.Batch.MaxConcurrency,
		PerItemTimeout: cfg.Batch.ItemTimeout,
		BatchTimeout:   cfg.Batch.Timeout,
	}
	if f.parallel != 0 {
		run.MaxConcurrency = f.parallel
	}
	if f.timeout > 0 {
		run.PerItemTimeout = f.timeout
	}

	st, err := orch.Run(ctx, urls, opts, run, newTerminalSink(os.Stdout))
	if err != nil {
		return err
	}
	if f.cleanup {
		if ok, err := workspace.Cleanup(st.WorkspaceRoot); !ok {
			slog.Warn("Workspace not removed", "path", st.WorkspaceRoot, "error", err)
		}
	}
	return nil
}
