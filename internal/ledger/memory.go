package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Appends are staged and published under
// one lock, so readers never see part of a bill.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []Row
	nextID int64

	// FailRow, when set, is called for every staged row; an error aborts the whole append.
	FailRow func(index int, row Row) error
	// Down, when set, is returned from every call as a StorageUnavailableError.
	Down error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, rows []Row) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down != nil {
		return nil, &StorageUnavailableError{Op: "append", Err: s.Down}
	}

	staged := make([]Row, 0, len(rows))
	for i, row := range rows {
		row.ID = s.nextID + int64(i) + 1
		if s.FailRow != nil {
			if err := s.FailRow(i, row); err != nil {
				return nil, &PartialCommitError{Written: i, Total: len(rows), Err: err}
			}
		}
		staged = append(staged, row)
	}
	s.rows = append(s.rows, staged...)
	s.nextID += int64(len(staged))

	out := make([]Row, len(staged))
	copy(out, staged)
	return out, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("list", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Down != nil {
		return nil, &StorageUnavailableError{Op: "list", Err: s.Down}
	}
	out := make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		if f.match(row.BilledAt) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
