package storage

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"ytdlpanel/internal/models"
)

const (
	DefaultCapacity     = 100
	DefaultDisplayLimit = 10
)

// Storage is the in-memory history ledger. Entries are kept most recent first and are
// never modified once added. Nothing is persisted.
type Storage struct {
	mu       sync.RWMutex
	capacity int
	history  []models.HistoryEntry
}

func New(capacity int) *Storage {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Storage{capacity: capacity}
}

// Add stamps entry with an id and timestamp when missing and prepends it.
func (s *Storage) Add(entry models.HistoryEntry) models.HistoryEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		id, err := ksuid.NewRandomWithTime(entry.Timestamp)
		if err != nil {
			id = ksuid.New()
		}
		entry.ID = id.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, models.HistoryEntry{})
	copy(s.history[1:], s.history)
	s.history[0] = entry
	if len(s.history) > s.capacity {
		s.history = s.history[:s.capacity]
	}
	return entry
}

// Recent returns a copy of up to limit newest entries; limit <= 0 returns all.
func (s *Storage) Recent(limit int) []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.HistoryEntry, n)
	copy(out, s.history[:n])
	return out
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

func (s *Storage) Clear() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}
