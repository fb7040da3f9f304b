// Package audit keeps the record of admin actions taken in the console.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskindex/deskindex/internal/database"
	"github.com/deskindex/deskindex/internal/models"
)

// Store persists and lists activity entries.
type Store interface {
	Log(ctx context.Context, entry models.ActivityLog) error
	List(ctx context.Context, filter database.ActivityFilter) ([]models.ActivityLog, error)
}

// MemoryStore is a bounded in-process Store used when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	entries  []models.ActivityLog
}

// NewMemoryStore keeps at most capacity entries, dropping the oldest.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryStore{capacity: capacity}
}

// Log appends entry.
func (m *MemoryStore) Log(_ context.Context, entry models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]models.ActivityLog(nil), m.entries[over:]...)
	}
	return nil
}

// List returns matching entries, newest first.
func (m *MemoryStore) List(_ context.Context, filter database.ActivityFilter) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	out := []models.ActivityLog{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.entries[i]
		if filter.ActivityType != "" && e.ActivityType != filter.ActivityType {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteOlderThan drops entries whose timestamp is older than age.
func (m *MemoryStore) DeleteOlderThan(_ context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}
