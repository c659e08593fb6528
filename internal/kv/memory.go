package kv

import (
	"context"
	"sync"
)

type memMember struct {
	id  string
	seq int64
}

type memIndex struct {
	seq     int64
	members []memMember
	present map[string]bool
}

// MemoryStore keeps everything in process memory. It is used in tests and
// for local development when no Redis or MySQL is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	indexes map[string]*memIndex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
		indexes: make(map[string]*memIndex),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok, nil
}

func (s *MemoryStore) Create(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return ErrExists
	}
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *MemoryStore) IndexAdd(ctx context.Context, index string, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[index]
	if !ok {
		idx = &memIndex{present: make(map[string]bool)}
		s.indexes[index] = idx
	}
	for _, id := range ids {
		if idx.present[id] {
			continue
		}
		idx.seq++
		idx.members = append(idx.members, memMember{id: id, seq: idx.seq})
		idx.present[id] = true
	}
	return nil
}

func (s *MemoryStore) IndexRemove(ctx context.Context, index string, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[index]
	if !ok || len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if idx.present[id] {
			drop[id] = true
			delete(idx.present, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	kept := idx.members[:0]
	for _, m := range idx.members {
		if !drop[m.id] {
			kept = append(kept, m)
		}
	}
	idx.members = kept
	return nil
}

func (s *MemoryStore) IndexPage(ctx context.Context, index, cursor string, limit int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	after, err := parseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	if limit < 1 {
		limit = 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[index]
	if !ok {
		return Page{}, nil
	}
	var page Page
	for i, m := range idx.members {
		if m.seq <= after {
			continue
		}
		if len(page.IDs) == limit {
			page.Next = formatCursor(idx.members[i-1].seq)
			break
		}
		page.IDs = append(page.IDs, m.id)
	}
	return page, nil
}

func (s *MemoryStore) IndexCount(ctx context.Context, index string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[index]; ok {
		return len(idx.members), nil
	}
	return 0, nil
}
