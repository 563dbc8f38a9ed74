// Package guard is the single write path into the resource repository. Every
// mutation is a version-stamped compare-and-swap: the caller names the
// version it last saw and the write only goes through if nobody else got
// there first.
package guard

import (
	"context"
	"fmt"
	"sync"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/store"
)

// AnyVersion skips the version comparison. Used where the caller has no
// last-seen version, such as a cascaded release of a counterpart.
const AnyVersion int64 = 0

// Mutation edits a copy of the current resource. Returning an error aborts
// the write and leaves the stored resource untouched.
type Mutation func(r *model.Resource) error

// Guard serializes the read-compare-write of each resource id. Locks are
// held only for the duration of one Apply.
type Guard struct {
	repo  store.Repository
	bulk  sync.RWMutex
	locks keyLocks
}

// New wraps repo. repo must not be written by anything else.
func New(repo store.Repository) *Guard {
	return &Guard{
		repo:  repo,
		locks: keyLocks{m: make(map[string]*keyLock)},
	}
}

// Repository returns the wrapped repository for reads.
func (g *Guard) Repository() store.Repository {
	return g.repo
}

// Apply runs mutate against resource id if its version still equals
// expected, then stores the result with the version incremented.
func (g *Guard) Apply(ctx context.Context, id string, expected int64, mutate Mutation) (model.Resource, error) {
	g.bulk.RLock()
	defer g.bulk.RUnlock()
	unlock := g.locks.lock(id)
	defer unlock()

	current, err := g.repo.Get(ctx, id)
	if err != nil {
		return model.Resource{}, err
	}
	if expected != AnyVersion && expected != current.Version {
		return model.Resource{}, &apperr.ConflictError{ResourceID: id, Expected: expected, Actual: current.Version}
	}

	next := current.Clone()
	if err := mutate(&next); err != nil {
		return model.Resource{}, err
	}
	next.ID = current.ID
	next.Kind = current.Kind
	next.Version = current.Version + 1

	if err := g.repo.Put(ctx, next); err != nil {
		return model.Resource{}, fmt.Errorf("failed to persist resource %s: %w", id, err)
	}
	return next, nil
}

// Replace swaps the entire list of one kind. It waits for in-flight Apply
// calls to finish and blocks new ones until the swap is done. build receives
// the current list of that kind.
func (g *Guard) Replace(ctx context.Context, kind model.Kind, build func(current []model.Resource) ([]model.Resource, error)) ([]model.Resource, error) {
	g.bulk.Lock()
	defer g.bulk.Unlock()

	current, err := g.repo.List(ctx, store.Filter{Kind: kind})
	if err != nil {
		return nil, err
	}
	next, err := build(current)
	if err != nil {
		return nil, err
	}
	for _, r := range next {
		if r.Kind != kind {
			return nil, apperr.Validation("resource %q is a %s, not a %s", r.ID, r.Kind, kind)
		}
	}
	if err := g.repo.ReplaceKind(ctx, kind, next); err != nil {
		return nil, fmt.Errorf("failed to replace %s resources: %w", kind, err)
	}
	return next, nil
}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyLocks hands out one mutex per key and forgets it once nobody holds or
// waits on it.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
