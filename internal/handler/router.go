package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/fileserve"
	"ytdlpanel/internal/platform"
	"ytdlpanel/internal/storage"
	"ytdlpanel/internal/websocket"
	"ytdlpanel/internal/workspace"
)

type Deps struct {
	Session        *batch.Session
	History        *storage.Storage
	HistoryLimit   int
	Hub            *websocket.Hub
	Files          *fileserve.Server
	Workspace      *workspace.Manager
	FFmpeg         *platform.Detector
	Extractor      string
	PreviewClient  *http.Client
	PreviewTimeout time.Duration
	Gatherer       prometheus.Gatherer
	StaticDir      string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	if d.StaticDir != "" {
		r.Handle("/", http.FileServer(http.Dir(d.StaticDir)))
	}
	r.Get("/validate", ValidateHandler())
	r.Get("/preview", PreviewHandler(d.PreviewClient, d.PreviewTimeout))
	r.Post("/batch", StartBatchHandler(d.Session, d.Hub))
	r.Get("/batch", GetBatchHandler(d.Session))
	r.Put("/batch/cancel", CancelBatchHandler(d.Session))
	r.Delete("/batch", CleanupBatchHandler(d.Session, d.Hub))
	r.Get("/batch/files", ListFilesHandler(d.Session, d.Files))
	r.Get("/batch/files/{index}", DownloadFileHandler(d.Session, d.Files, d.Workspace))
	r.Get("/history", GetHistoryHandler(d.History, d.HistoryLimit))
	r.Delete("/history", ClearHistoryHandler(d.History, d.Hub))
	r.Get("/system", SystemHandler(d.Extractor, d.FFmpeg, d.Session, d.Files))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", d.Hub.WsHandler)
	return r
}
