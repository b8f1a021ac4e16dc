package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/models"
)

// terminalSink prints batch events as plain lines.
type terminalSink struct {
	w io.Writer
}

func newTerminalSink(w io.Writer) *terminalSink {
	return &terminalSink{w: w}
}

func (s *terminalSink) Progress(completed, total int) {
	fmt.Fprintf(s.w, "Progress: %d/%d\n", completed, total)
}

func (s *terminalSink) ItemCompleted(r models.DownloadResult) {
	switch r.Status {
	case models.StatusSuccess:
		fmt.Fprintf(s.w, "  ok       %s (%d file(s), %.1fs)\n", r.Title, len(r.Files), r.Duration)
	case models.StatusTimeout:
		fmt.Fprintf(s.w, "  timeout  %s\n", r.SourceURL)
	case models.StatusSkipped:
		fmt.Fprintf(s.w, "  skipped  %s\n", r.SourceURL)
	default:
		fmt.Fprintf(s.w, "  failed   %s: %s. %s\n", r.SourceURL, r.ErrorCategory, r.Remedy)
	}
}

func (s *terminalSink) ItemProgress(models.TransferProgress) {}

func (s *terminalSink) BatchFinished(snap batch.Snapshot) {
	fmt.Fprintf(s.w, "\nSucceeded: %d  Failed: %d  Timed out: %d", snap.SuccessCount, snap.FailCount, snap.TimeoutCount)
	if snap.SkippedCount > 0 {
		fmt.Fprintf(s.w, "  Skipped: %d", snap.SkippedCount)
	}
	fmt.Fprintln(s.w)
	for _, f := range snap.Files {
		fmt.Fprintf(s.w, "%10s  %s\n", humanize.IBytes(f.SizeBytes), f.AbsolutePath)
	}
}

var _ batch.ProgressSink = (*terminalSink)(nil)
