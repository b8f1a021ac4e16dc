package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"ytdlpanel/internal/classify"
	"ytdlpanel/internal/models"
	"ytdlpanel/internal/utils"
)

const (
	DefaultTimeout = 15 * time.Minute

	titleUnknown = "Unknown"
	titleFailed  = "Failed"
	titleTimeout = "Timeout"
)

var ErrNoFiles = errors.New("download finished without producing any files")

type FFmpegProbe interface {
	Available() bool
}

type Downloader struct {
	extractor Extractor
	ffmpeg    FFmpegProbe
}

func New(extractor Extractor, ffmpeg FFmpegProbe) *Downloader {
	return &Downloader{extractor: extractor, ffmpeg: ffmpeg}
}

type outcome struct {
	info ExtractInfo
	err  error
}

// Download runs req into dir and always returns a result. A call that outlives timeout
// is abandoned and reported as a timeout without files, whatever it left on disk.
func (d *Downloader) Download(ctx context.Context, req models.DownloadRequest, dir string, timeout time.Duration, onProgress ProgressFunc) (result models.DownloadResult) {
	start := time.Now()
	result = models.DownloadResult{
		Index:     req.Index,
		SourceURL: req.URL,
		Files:     []models.FileRecord{},
	}
	defer func() { result.Duration = time.Since(start).Seconds() }()

	opts := models.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	haveFFmpeg := d.ffmpeg != nil && d.ffmpeg.Available()
	xreq := BuildRequest(req.URL, opts, dir, haveFFmpeg)

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var finished atomic.Bool
	defer finished.Store(true)
	progress := func(p models.TransferProgress) {
		if onProgress == nil || finished.Load() {
			return
		}
		p.Index = req.Index
		onProgress(p)
	}

	done := make(chan outcome, 1)
	go func() {
		info, err := d.extractor.Extract(ctx, xreq, progress)
		done <- outcome{info: info, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err != nil && ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			d.timedOut(&result, timeout)
		} else {
			result.Status = models.StatusError
			result.Title = titleFailed
			result.ErrorCategory = classify.CategoryCancelled
			result.ErrorDetail = "cancelled"
			result.Remedy = classify.RemedyCancelled
		}
		return result
	}

	if out.err == nil {
		files, err := collectFiles(dir)
		switch {
		case err != nil:
			out.err = fmt.Errorf("scan output directory: %w", err)
		case len(files) == 0:
			out.err = ErrNoFiles
		default:
			result.Status = models.StatusSuccess
			result.Files = files
			result.Title = pickTitle(out.info.Title, files)
			return result
		}
	}

	result.Status = models.StatusError
	result.Title = titleFailed
	if out.info.Title != "" {
		result.Title = utils.TruncateTitle(out.info.Title)
	}
	result.ErrorDetail = out.err.Error()
	result.ErrorCategory, result.Remedy = classify.Classify(result.ErrorDetail)
	slog.Warn("Download failed", "url", req.URL, "category", result.ErrorCategory, "error", result.ErrorDetail)
	return result
}

func (d *Downloader) timedOut(result *models.DownloadResult, timeout time.Duration) {
	result.Status = models.StatusTimeout
	result.Title = titleTimeout
	result.Files = []models.FileRecord{}
	result.ErrorCategory = classify.CategoryTimeout
	result.ErrorDetail = fmt.Sprintf("took longer than %s", timeout)
	result.Remedy = classify.RemedyTimeout
	slog.Warn("Download timed out", "url", result.SourceURL, "timeout", timeout)
}

func collectFiles(dir string) ([]models.FileRecord, error) {
	files := []models.FileRecord{}
	err := filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.Type().IsRegular() {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		files = append(files, models.FileRecord{
			Filename:     e.Name(),
			AbsolutePath: abs,
			SizeBytes:    uint64(info.Size()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

func pickTitle(extracted string, files []models.FileRecord) string {
	title := strings.TrimSpace(extracted)
	if title == "" && len(files) > 0 {
		title = strings.TrimSuffix(files[0].Filename, filepath.Ext(files[0].Filename))
	}
	if title == "" {
		title = titleUnknown
	}
	return utils.TruncateTitle(title)
}
