package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/config"
	"ytdlpanel/internal/fileserve"
	"ytdlpanel/internal/models"
	"ytdlpanel/internal/platform"
	"ytdlpanel/internal/storage"
	"ytdlpanel/internal/utils"
	"ytdlpanel/internal/websocket"
	"ytdlpanel/internal/workspace"
)

func ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		valid, msg := utils.ValidateURL(strings.TrimSpace(r.URL.Query().Get("url")))
		json.NewEncoder(w).Encode(map[string]any{"valid": valid, "message": msg})
	}
}

func PreviewHandler(client *http.Client, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		pageURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if valid, msg := utils.ValidateURL(pageURL); !valid {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": msg})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		preview, err := utils.FetchPreview(ctx, client, pageURL)
		if err != nil {
			slog.Warn("Preview failed", "url", pageURL, "error", err)
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to fetch preview"})
			return
		}
		json.NewEncoder(w).Encode(preview)
	}
}

type startBatchRequest struct {
	URLs           []string         `json:"urls"`
	Text           string           `json:"text"`
	Options        models.OptionSet `json:"options"`
	MaxSize        string           `json:"maxSize"`
	Playlist       string           `json:"playlist"`
	MaxConcurrency int              `json:"maxConcurrency"`
	TimeoutMinutes int              `json:"timeoutMinutes"`
}

func StartBatchHandler(session *batch.Session, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req startBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid json"})
			return
		}

		urls := append(req.URLs, utils.SplitURLs(req.Text)...)
		if len(urls) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "at least one url is required"})
			return
		}

		opts := req.Options
		if req.MaxSize != "" {
			size, err := models.ParseMaxSize(req.MaxSize)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			opts.MaxFileSizeBytes = size
		}
		if req.Playlist != "" {
			pr, err := models.ParsePlaylistRange(req.Playlist)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			opts.PlaylistRange = pr
		}

		cfg := batch.RunConfig{MaxConcurrency: req.MaxConcurrency}
		if req.MaxConcurrency != 0 {
			cfg.MaxConcurrency = max(config.MinConcurrency, min(req.MaxConcurrency, config.MaxConcurrency))
		}
		if req.TimeoutMinutes > 0 {
			d := time.Duration(req.TimeoutMinutes) * time.Minute
			cfg.PerItemTimeout = max(config.MinItemTimeout, min(d, config.MaxItemTimeout))
		}

		snap, err := session.Start(urls, opts, cfg)
		switch {
		case errors.Is(err, batch.ErrBatchRunning):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		case errors.Is(err, models.ErrInvalidOption), errors.Is(err, batch.ErrNoURLs):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		case err != nil:
			slog.Error("Failed to start batch", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to start batch"})
			return
		}

		hub.BroadcastUpdate()
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(snap)
	}
}

func GetBatchHandler(session *batch.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap, ok := session.Snapshot()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": batch.ErrNoBatch.Error()})
			return
		}
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "failed to encode batch"}`))
		}
	}
}

func CancelBatchHandler(session *batch.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !session.Cancel() {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "no running batch"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "cancelling"})
	}
}

// CleanupBatchHandler removes the batch workspace. Filesystem failures come back as a
// warning with status 200; they never block further use.
func CleanupBatchHandler(session *batch.Session, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ok, err := session.Cleanup()
		if errors.Is(err, batch.ErrBatchRunning) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"cleaned": false, "warning": err.Error()})
			return
		}
		hub.BroadcastUpdate()
		json.NewEncoder(w).Encode(map[string]any{"cleaned": true})
	}
}

type fileEntry struct {
	Index     int    `json:"index"`
	Filename  string `json:"filename"`
	SizeBytes uint64 `json:"sizeBytes"`
	Size      string `json:"size"`
	Inline    bool   `json:"inline"`
	Path      string `json:"path,omitempty"`
}

func ListFilesHandler(session *batch.Session, files *fileserve.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap, ok := session.Snapshot()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": batch.ErrNoBatch.Error()})
			return
		}

		entries := make([]fileEntry, len(snap.Files))
		for i, f := range snap.Files {
			e := fileEntry{
				Index:     i,
				Filename:  f.Filename,
				SizeBytes: f.SizeBytes,
				Size:      utils.FormatSize(f.SizeBytes),
				Inline:    fileserve.Decide(f.SizeBytes, files.Threshold()) == fileserve.Inline,
			}
			if !e.Inline {
				e.Path = f.AbsolutePath
			}
			entries[i] = e
		}
		json.NewEncoder(w).Encode(entries)
	}
}

func DownloadFileHandler(session *batch.Session, files *fileserve.Server, ws *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "index must be a number"})
			return
		}

		rec, ok := session.File(index)
		if !ok || !ws.Owns(rec.AbsolutePath) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "file not found"})
			return
		}
		files.Serve(w, rec)
	}
}

func GetHistoryHandler(store *storage.Storage, displayLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		limit := displayLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "limit must be a positive number"})
				return
			}
			limit = min(n, displayLimit)
		}
		json.NewEncoder(w).Encode(store.Recent(limit))
	}
}

func ClearHistoryHandler(store *storage.Storage, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Clear()
		hub.BroadcastUpdate()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	}
}

func SystemHandler(extractor string, ffmpeg *platform.Detector, session *batch.Session, files *fileserve.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		defaults := session.Defaults()
		json.NewEncoder(w).Encode(map[string]any{
			"dependencies":   platform.Report(extractor, ffmpeg),
			"maxConcurrency": defaults.MaxConcurrency,
			"itemTimeout":    defaults.PerItemTimeout.String(),
			"inlineLimit":    utils.FormatSize(files.Threshold()),
			"running":        session.Running(),
		})
	}
}
