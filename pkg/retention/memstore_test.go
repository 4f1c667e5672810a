package retention

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// memStore is an in-memory MemoryStore for engine tests.
type memStore struct {
	memories map[string]*storage.Memory

	// failDelete and failUpsert force per-item failures by memory ID.
	failDelete map[string]bool
	failUpsert map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		memories:   make(map[string]*storage.Memory),
		failDelete: make(map[string]bool),
		failUpsert: make(map[string]bool),
	}
}

func (s *memStore) Insert(_ context.Context, m *storage.Memory) error {
	cp := *m
	s.memories[m.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id, sessionID string) (*storage.Memory, error) {
	m, ok := s.memories[id]
	if !ok || m.SessionID != sessionID {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) Upsert(_ context.Context, m *storage.Memory) error {
	if s.failUpsert[m.ID] {
		return fmt.Errorf("Upsert: %w: forced failure", storage.ErrUnavailable)
	}
	cp := *m
	s.memories[m.ID] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id, sessionID string) error {
	if s.failDelete[id] {
		return fmt.Errorf("Delete: %w: forced failure", storage.ErrUnavailable)
	}
	m, ok := s.memories[id]
	if !ok || m.SessionID != sessionID {
		return storage.ErrNotFound
	}
	delete(s.memories, id)
	return nil
}

func (s *memStore) Query(_ context.Context, opts *storage.QueryOptions) ([]*storage.Memory, error) {
	if opts.SessionID == "" && !opts.CrossPartition {
		return nil, storage.ErrCrossPartition
	}

	var results []*storage.Memory
	for _, m := range s.memories {
		if !s.matches(m, opts) {
			continue
		}
		cp := *m
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *memStore) matches(m *storage.Memory, opts *storage.QueryOptions) bool {
	if opts.SessionID != "" && m.SessionID != opts.SessionID {
		return false
	}
	if opts.MemoryType != "" && m.MemoryType != opts.MemoryType {
		return false
	}
	if opts.MinImportance > 0 && m.ImportanceScore < opts.MinImportance {
		return false
	}
	if opts.MaxImportance != nil && m.ImportanceScore >= *opts.MaxImportance {
		return false
	}
	if opts.CreatedBefore != nil && !m.CreatedAt.Before(*opts.CreatedBefore) {
		return false
	}
	if opts.MaxAccessCount != nil && m.AccessCount >= *opts.MaxAccessCount {
		return false
	}
	if opts.Archived != nil {
		if m.IsArchived != *opts.Archived {
			return false
		}
	} else if !opts.IncludeArchived && m.IsArchived {
		return false
	}
	if opts.ContentContains != "" &&
		!strings.Contains(strings.ToLower(m.Content), strings.ToLower(opts.ContentContains)) {
		return false
	}
	for _, tag := range opts.Tags {
		found := false
		for _, have := range m.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *memStore) Count(_ context.Context, opts *storage.CountOptions) (int, error) {
	if opts.SessionID == "" && !opts.CrossPartition {
		return 0, storage.ErrCrossPartition
	}

	count := 0
	for _, m := range s.memories {
		if opts.SessionID != "" && m.SessionID != opts.SessionID {
			continue
		}
		if opts.Archived != nil {
			if m.IsArchived != *opts.Archived {
				continue
			}
		} else if !opts.IncludeArchived && m.IsArchived {
			continue
		}
		count++
	}
	return count, nil
}

func (s *memStore) Close() error { return nil }
