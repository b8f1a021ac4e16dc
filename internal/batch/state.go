package batch

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"ytdlpanel/internal/models"
)

// BatchState is written only by the coordinating goroutine of Execute.
// The lock exists so Snapshot can be read from other goroutines.
type BatchState struct {
	ID            string
	WorkspaceRoot string
	Requests      []models.DownloadRequest
	Options       models.OptionSet
	StartedAt     time.Time

	mu           sync.RWMutex
	completed    []models.DownloadResult
	seen         map[int]bool
	successCount int
	failCount    int
	timeoutCount int
	skippedCount int
	finishedAt   time.Time
	done         bool
	cancelled    bool
}

func newState(id, root string, urls []string, opts models.OptionSet) *BatchState {
	st := &BatchState{
		ID:            id,
		WorkspaceRoot: root,
		Options:       opts,
		StartedAt:     time.Now(),
		Requests:      make([]models.DownloadRequest, len(urls)),
		completed:     make([]models.DownloadResult, 0, len(urls)),
		seen:          make(map[int]bool, len(urls)),
	}
	for i, u := range urls {
		st.Requests[i] = models.DownloadRequest{Index: i, URL: u, Options: &st.Options}
	}
	return st
}

// record appends r unless its request already has a result.
func (s *BatchState) record(r models.DownloadResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[r.Index] {
		slog.Error("Duplicate result dropped", "batch", s.ID, "index", r.Index, "url", r.SourceURL)
		return false
	}
	s.seen[r.Index] = true
	s.completed = append(s.completed, r)

	switch r.Status {
	case models.StatusSuccess:
		s.successCount++
	case models.StatusTimeout:
		s.timeoutCount++
	case models.StatusSkipped:
		s.skippedCount++
	default:
		s.failCount++
	}
	return true
}

// missing lists requests that have no result yet.
func (s *BatchState) missing() []models.DownloadRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DownloadRequest
	for _, req := range s.Requests {
		if !s.seen[req.Index] {
			out = append(out, req)
		}
	}
	return out
}

func (s *BatchState) progress() (done, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.completed), len(s.Requests)
}

func (s *BatchState) finish(cancelled bool) {
	s.mu.Lock()
	s.done = true
	s.cancelled = cancelled
	s.finishedAt = time.Now()
	s.mu.Unlock()
}

func (s *BatchState) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

type Snapshot struct {
	ID            string                  `json:"id"`
	WorkspaceRoot string                  `json:"workspaceRoot"`
	Options       models.OptionSet        `json:"options"`
	Total         int                     `json:"total"`
	Completed     int                     `json:"completed"`
	SuccessCount  int                     `json:"successCount"`
	FailCount     int                     `json:"failCount"`
	TimeoutCount  int                     `json:"timeoutCount"`
	SkippedCount  int                     `json:"skippedCount"`
	Results       []models.DownloadResult `json:"results"`
	Files         []models.FileRecord     `json:"files"`
	Done          bool                    `json:"done"`
	Cancelled     bool                    `json:"cancelled"`
	StartedAt     time.Time               `json:"startedAt"`
	FinishedAt    *time.Time              `json:"finishedAt,omitempty"`
}

// Snapshot copies the state. Results are in completion order; Files holds every file
// of every item, largest first.
func (s *BatchState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:            s.ID,
		WorkspaceRoot: s.WorkspaceRoot,
		Options:       s.Options,
		Total:         len(s.Requests),
		Completed:     len(s.completed),
		SuccessCount:  s.successCount,
		FailCount:     s.failCount,
		TimeoutCount:  s.timeoutCount,
		SkippedCount:  s.skippedCount,
		Results:       make([]models.DownloadResult, len(s.completed)),
		Files:         []models.FileRecord{},
		Done:          s.done,
		Cancelled:     s.cancelled,
		StartedAt:     s.StartedAt,
	}
	copy(snap.Results, s.completed)
	if s.done {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	for _, r := range s.completed {
		snap.Files = append(snap.Files, r.Files...)
	}
	sort.SliceStable(snap.Files, func(i, j int) bool {
		return snap.Files[i].SizeBytes > snap.Files[j].SizeBytes
	})
	return snap
}
