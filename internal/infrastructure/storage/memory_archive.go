package storage

import (
	"context"
	"sync"
	"time"

	importapp "github.com/dbcb2b/backend/internal/application/import"
	"github.com/google/uuid"
)

var _ importapp.Archiver = (*MemoryArchive)(nil)

// MemoryArchive keeps uploads in process memory. Used in development when no
// bucket is configured.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryArchive creates an empty MemoryArchive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

// Archive stores a copy of data and returns its key
func (m *MemoryArchive) Archive(ctx context.Context, kind, filename string, data []byte) (string, error) {
	key := ArchiveKey(kind, filename, time.Now(), uuid.New())
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	m.objects[key] = stored
	m.mu.Unlock()
	return key, nil
}

// Get returns the archived bytes for key
func (m *MemoryArchive) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len returns the number of archived objects
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
