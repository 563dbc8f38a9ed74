package store

import (
	"context"
	"sort"
	"sync"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
)

// MemoryStore is an in-memory Repository. Values are cloned on the way in
// and out so callers never alias stored slices.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]model.Resource
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty pool, optionally seeded with resources.
func NewMemoryStore(seed ...model.Resource) *MemoryStore {
	s := &MemoryStore{resources: make(map[string]model.Resource, len(seed))}
	for _, r := range seed {
		s.resources[r.ID] = r.Clone()
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return model.Resource{}, apperr.NotFound("resource", id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, r model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) ReplaceKind(_ context.Context, kind model.Kind, resources []model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.resources {
		if r.Kind == kind {
			delete(s.resources, id)
		}
	}
	for _, r := range resources {
		s.resources[r.ID] = r.Clone()
	}
	return nil
}
