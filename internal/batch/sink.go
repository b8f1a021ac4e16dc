package batch

import "ytdlpanel/internal/models"

// ProgressSink receives batch events. Execute calls it from a single goroutine,
// one event at a time.
type ProgressSink interface {
	Progress(completed, total int)
	ItemCompleted(result models.DownloadResult)
	ItemProgress(p models.TransferProgress)
	BatchFinished(snap Snapshot)
}

type NopSink struct{}

func (NopSink) Progress(int, int) {}
func (NopSink) ItemCompleted(models.DownloadResult) {}
func (NopSink) ItemProgress(models.TransferProgress) {}
func (NopSink) BatchFinished(Snapshot) {}

// MultiSink forwards every event to each sink in order.
type MultiSink []ProgressSink

func (m MultiSink) Progress(completed, total int) {
	for _, s := range m {
		s.Progress(completed, total)
	}
}

func (m MultiSink) ItemCompleted(r models.DownloadResult) {
	for _, s := range m {
		s.ItemCompleted(r)
	}
}

func (m MultiSink) ItemProgress(p models.TransferProgress) {
	for _, s := range m {
		s.ItemProgress(p)
	}
}

func (m MultiSink) BatchFinished(snap Snapshot) {
	for _, s := range m {
		s.BatchFinished(snap)
	}
}
