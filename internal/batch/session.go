package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ytdlpanel/internal/models"
	"ytdlpanel/internal/workspace"
)

var (
	ErrBatchRunning = errors.New("a batch is already running")
	ErrNoBatch      = errors.New("no batch")
)

// Session holds the current batch of the control panel. At most one batch runs at a time;
// starting a new one removes the workspace of the previous one.
type Session struct {
	orch     *Orchestrator
	defaults RunConfig
	sink     ProgressSink

	mu      sync.Mutex
	current *BatchState
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSession(orch *Orchestrator, defaults RunConfig, sink ProgressSink) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	return &Session{orch: orch, defaults: defaults, sink: sink}
}

func (s *Session) Defaults() RunConfig {
	return s.defaults.normalized()
}

func (s *Session) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Start launches a batch in the background and returns its initial snapshot.
// A zero field in cfg falls back to the session defaults. A rejected start leaves the
// previous batch and its files in place.
func (s *Session) Start(urls []string, opts models.OptionSet, cfg RunConfig) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return Snapshot{}, ErrBatchRunning
	}

	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = s.defaults.MaxConcurrency
	}
	if cfg.PerItemTimeout == 0 {
		cfg.PerItemTimeout = s.defaults.PerItemTimeout
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = s.defaults.BatchTimeout
	}

	st, err := s.orch.Prepare(urls, opts)
	if err != nil {
		return Snapshot{}, err
	}

	// the previous batch stays available until its replacement is prepared
	if prev := s.current; prev != nil {
		if ok, err := workspace.Cleanup(prev.WorkspaceRoot); !ok {
			slog.Warn("Previous batch workspace not removed", "batch", prev.ID, "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.current, s.cancel, s.done = st, cancel, done

	go func() {
		defer close(done)
		defer cancel()
		s.orch.Execute(ctx, st, cfg, s.sink)
	}()
	return st.Snapshot(), nil
}

func (s *Session) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	st := s.current
	s.mu.Unlock()
	if st == nil {
		return Snapshot{}, false
	}
	return st.Snapshot(), true
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// Cancel stops the running batch from starting new items and aborts in-flight ones.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runningLocked() {
		return false
	}
	slog.Info("Batch cancel requested", "batch", s.current.ID)
	s.cancel()
	return true
}

// Wait blocks until the current batch has finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup removes the workspace of a finished batch. It refuses while workers may still
// be writing into it.
func (s *Session) Cleanup() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return false, ErrBatchRunning
	}
	if s.current == nil {
		return true, nil
	}
	ok, err := workspace.Cleanup(s.current.WorkspaceRoot)
	if ok {
		slog.Info("Batch workspace removed", "batch", s.current.ID)
		s.current = nil
	}
	return ok, err
}

// File returns the index-th file of the consolidated, size-sorted file list.
func (s *Session) File(index int) (models.FileRecord, bool) {
	snap, ok := s.Snapshot()
	if !ok || index < 0 || index >= len(snap.Files) {
		return models.FileRecord{}, false
	}
	return snap.Files[index], true
}

// Close cancels any running batch, waits for it and removes its workspace.
func (s *Session) Close(ctx context.Context) error {
	s.Cancel()
	if err := s.Wait(ctx); err != nil {
		return err
	}
	_, err := s.Cleanup()
	return err
}
