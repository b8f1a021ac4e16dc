// Package batch runs many downloads with bounded parallelism and reports results
// in completion order.
//
// Workers never touch shared state: each sends its DownloadResult back over a
// channel and the goroutine running Execute applies it to the BatchState, the
// history ledger and the progress sink.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytdlpanel/internal/classify"
	"ytdlpanel/internal/download"
	"ytdlpanel/internal/metrics"
	"ytdlpanel/internal/models"
	"ytdlpanel/internal/utils"
	"ytdlpanel/internal/workspace"
)

const (
	DefaultMaxConcurrency = 3
	MinConcurrency        = 1
	MaxConcurrency        = 10
	DefaultItemTimeout    = download.DefaultTimeout

	progressBuffer = 64
)

var ErrNoURLs = errors.New("no URLs submitted")

type ItemDownloader interface {
	Download(ctx context.Context, req models.DownloadRequest, dir string, timeout time.Duration, onProgress download.ProgressFunc) models.DownloadResult
}

type Allocator interface {
	Allocate() (string, error)
}

type HistoryRecorder interface {
	Add(entry models.HistoryEntry) models.HistoryEntry
}

type RunConfig struct {
	MaxConcurrency int
	PerItemTimeout time.Duration
	// BatchTimeout is a wall-clock ceiling for the whole batch. Zero disables it.
	BatchTimeout time.Duration
}

func (c RunConfig) normalized() RunConfig {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	c.MaxConcurrency = max(MinConcurrency, min(c.MaxConcurrency, MaxConcurrency))
	if c.PerItemTimeout <= 0 {
		c.PerItemTimeout = DefaultItemTimeout
	}
	if c.BatchTimeout < 0 {
		c.BatchTimeout = 0
	}
	return c
}

type Orchestrator struct {
	downloader ItemDownloader
	workspace  Allocator
	history    HistoryRecorder
	metrics    *metrics.Metrics
}

// New builds an orchestrator. history and m may be nil.
func New(dl ItemDownloader, ws Allocator, history HistoryRecorder, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{downloader: dl, workspace: ws, history: history, metrics: m}
}

// Prepare normalizes opts once for the whole batch and allocates its workspace.
func (o *Orchestrator) Prepare(urls []string, opts models.OptionSet) (*BatchState, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	root, err := o.workspace.Allocate()
	if err != nil {
		return nil, fmt.Errorf("allocate batch workspace: %w", err)
	}

	trimmed := make([]string, len(urls))
	for i, u := range urls {
		trimmed[i] = strings.TrimSpace(u)
	}
	st := newState(uuid.NewString(), root, trimmed, opts)
	slog.Info("Batch prepared", "batch", st.ID, "urls", len(urls), "workspace", root)
	return st, nil
}

// Run is Prepare followed by Execute.
func (o *Orchestrator) Run(ctx context.Context, urls []string, opts models.OptionSet, cfg RunConfig, sink ProgressSink) (*BatchState, error) {
	st, err := o.Prepare(urls, opts)
	if err != nil {
		return nil, err
	}
	o.Execute(ctx, st, cfg, sink)
	return st, nil
}

// Execute blocks until every request of st has exactly one result. Cancelling ctx stops
// new items from starting; they are reported as skipped.
func (o *Orchestrator) Execute(ctx context.Context, st *BatchState, cfg RunConfig, sink ProgressSink) {
	cfg = cfg.normalized()
	if sink == nil {
		sink = NopSink{}
	}

	var cancel context.CancelFunc
	if cfg.BatchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.BatchTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	o.metrics.BatchStarted()

	valid := make([]models.DownloadRequest, 0, len(st.Requests))
	for _, req := range st.Requests {
		if ok, msg := utils.ValidateURL(req.URL); !ok {
			o.complete(st, invalidResult(req, msg), sink)
			continue
		}
		valid = append(valid, req)
	}

	workers := min(cfg.MaxConcurrency, len(valid))
	slog.Info("Batch started", "batch", st.ID, "total", len(st.Requests), "valid", len(valid), "workers", workers)

	jobs := make(chan models.DownloadRequest, len(valid))
	for _, req := range valid {
		jobs <- req
	}
	close(jobs)

	results := make(chan models.DownloadResult, len(valid))
	progress := make(chan models.TransferProgress, progressBuffer)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for req := range jobs {
				results <- o.runItem(ctx, workerID, st.WorkspaceRoot, req, cfg.PerItemTimeout, progress)
			}
		}(w)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

loop:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break loop
			}
			o.complete(st, r, sink)
		case p := <-progress:
			sink.ItemProgress(p)
		}
	}

	for _, req := range st.missing() {
		slog.Error("Request finished without a result", "batch", st.ID, "index", req.Index, "url", req.URL)
		o.complete(st, models.DownloadResult{
			Index:         req.Index,
			SourceURL:     req.URL,
			Title:         "Failed",
			Status:        models.StatusError,
			Files:         []models.FileRecord{},
			ErrorCategory: classify.CategoryUnknown,
			ErrorDetail:   "no result was produced for this item",
			Remedy:        classify.RemedyUnknown,
		}, sink)
	}

	st.finish(errors.Is(ctx.Err(), context.Canceled))
	snap := st.Snapshot()
	slog.Info("Batch finished",
		"batch", st.ID,
		"success", snap.SuccessCount,
		"failed", snap.FailCount,
		"timeout", snap.TimeoutCount,
		"skipped", snap.SkippedCount,
		"files", len(snap.Files),
		"elapsed", time.Since(st.StartedAt).Round(time.Millisecond),
	)
	sink.BatchFinished(snap)
}

func (o *Orchestrator) runItem(ctx context.Context, workerID int, root string, req models.DownloadRequest, timeout time.Duration, progress chan<- models.TransferProgress) models.DownloadResult {
	if ctx.Err() != nil {
		return skippedResult(req)
	}

	dir, err := workspace.TaskDir(root, req.Index)
	if err != nil {
		category, remedy := classify.Classify(err.Error())
		return models.DownloadResult{
			Index:         req.Index,
			SourceURL:     req.URL,
			Title:         "Failed",
			Status:        models.StatusError,
			Files:         []models.FileRecord{},
			ErrorCategory: category,
			ErrorDetail:   err.Error(),
			Remedy:        remedy,
		}
	}

	slog.Debug("Item started", "worker", workerID, "index", req.Index, "url", req.URL)
	o.metrics.ItemStarted()
	defer o.metrics.ItemStopped()

	return o.downloader.Download(ctx, req, dir, timeout, func(p models.TransferProgress) {
		select {
		case progress <- p:
		default:
		}
	})
}

// complete runs on the coordinating goroutine only.
func (o *Orchestrator) complete(st *BatchState, r models.DownloadResult, sink ProgressSink) {
	if !st.record(r) {
		return
	}
	if o.history != nil && r.Status != models.StatusSkipped {
		o.history.Add(historyEntry(r))
	}
	o.metrics.ItemFinished(r)

	slog.Info("Item finished",
		"batch", st.ID,
		"index", r.Index,
		"url", r.SourceURL,
		"status", r.Status,
		"files", len(r.Files),
		"duration", r.Duration,
	)

	sink.ItemCompleted(r)
	done, total := st.progress()
	sink.Progress(done, total)
}

func invalidResult(req models.DownloadRequest, msg string) models.DownloadResult {
	return models.DownloadResult{
		Index:         req.Index,
		SourceURL:     req.URL,
		Title:         "Invalid URL",
		Status:        models.StatusError,
		Files:         []models.FileRecord{},
		ErrorCategory: classify.CategoryURL,
		ErrorDetail:   msg,
		Remedy:        msg,
	}
}

func skippedResult(req models.DownloadRequest) models.DownloadResult {
	return models.DownloadResult{
		Index:     req.Index,
		SourceURL: req.URL,
		Title:     "Skipped",
		Status:    models.StatusSkipped,
		Files:     []models.FileRecord{},
	}
}

var historyStatus = map[models.Status]string{
	models.StatusSuccess: "Success",
	models.StatusError:   "Failed",
	models.StatusTimeout: "Timeout",
	models.StatusSkipped: "Skipped",
}

func historyEntry(r models.DownloadResult) models.HistoryEntry {
	return models.HistoryEntry{
		URLSummary: utils.SummarizeURL(r.SourceURL),
		Title:      r.Title,
		FileCount:  len(r.Files),
		Status:     historyStatus[r.Status],
	}
}
