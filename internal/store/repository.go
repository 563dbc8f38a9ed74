package store

import (
	"context"
	"strings"

	"asset-booking-backend/internal/model"
)

// Repository is the resource pool. It holds no business rules; writes are
// unconditional and only the concurrency guard calls Put and ReplaceKind.
type Repository interface {
	Get(ctx context.Context, id string) (model.Resource, error)
	List(ctx context.Context, f Filter) ([]model.Resource, error)
	Put(ctx context.Context, r model.Resource) error
	ReplaceKind(ctx context.Context, kind model.Kind, resources []model.Resource) error
}

// Filter narrows a List call. Zero fields match everything.
type Filter struct {
	Kind     model.Kind
	Status   model.Status
	Size     string
	Platform string
	// Query is a case-insensitive substring matched against the name and
	// the bound project name.
	Query string
}

// Match reports whether r satisfies every set field of f.
func (f Filter) Match(r model.Resource) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Size != "" && !strings.EqualFold(r.Size, f.Size) {
		return false
	}
	if f.Platform != "" && !strings.EqualFold(r.Platform, f.Platform) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.BoundProjectName), q) {
			return false
		}
	}
	return true
}
