// Package handles is the in-process registry of ephemeral file bytes. Every
// staged rendition (source, preview, thumbnail) is one entry, keyed by a
// session-local handle id, and must be released exactly once: either when
// its asset is removed or right after the asset is durably stored.
package handles

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a handle id is unknown.
	ErrNotFound = errors.New("handle not found")
	// ErrReleased is returned on a second release of the same handle.
	ErrReleased = errors.New("handle already released")
)

// Table owns blobs for one edit session. It is safe for concurrent use;
// thumbnail goroutines acquire into it while request handlers read from it.
type Table struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	released map[string]bool
}

func NewTable() *Table {
	return &Table{
		blobs:    make(map[string][]byte),
		released: make(map[string]bool),
	}
}

// Acquire registers data under a fresh handle id and returns the id.
func (t *Table) Acquire(data []byte) string {
	id := uuid.NewString()
	t.mu.Lock()
	t.blobs[id] = data
	t.mu.Unlock()
	return id
}

// Bytes returns the blob for id. The slice must not be mutated.
func (t *Table) Bytes(id string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.blobs[id]
	if !ok {
		if t.released[id] {
			return nil, ErrReleased
		}
		return nil, ErrNotFound
	}
	return data, nil
}

// Release drops the blob for id. Releasing twice is an error so leaks and
// double-frees both show up in tests.
func (t *Table) Release(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.blobs[id]; !ok {
		if t.released[id] {
			return ErrReleased
		}
		return ErrNotFound
	}
	delete(t.blobs, id)
	t.released[id] = true
	return nil
}

// ReleaseAll drops every live blob. Used on session teardown.
func (t *Table) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.blobs {
		delete(t.blobs, id)
		t.released[id] = true
	}
}

// Live returns the number of unreleased blobs.
func (t *Table) Live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.blobs)
}
