package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
)

// ProjectRegistry resolves the projects a booking may be linked to.
type ProjectRegistry interface {
	Project(ctx context.Context, id string) (model.Project, error)
	ProjectByName(ctx context.Context, name string) (model.Project, error)
}

// GormProjects is the database-backed project registry.
type GormProjects struct {
	db *gorm.DB
}

// NewGormProjects creates a registry reading the projects table.
func NewGormProjects(db *gorm.DB) *GormProjects {
	return &GormProjects{db: db}
}

func (p *GormProjects) Project(ctx context.Context, id string) (model.Project, error) {
	return p.first(ctx, "id = ?", id)
}

func (p *GormProjects) ProjectByName(ctx context.Context, name string) (model.Project, error) {
	return p.first(ctx, "name = ?", strings.TrimSpace(name))
}

func (p *GormProjects) first(ctx context.Context, query string, arg string) (model.Project, error) {
	var project model.Project
	if err := p.db.WithContext(ctx).First(&project, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Project{}, apperr.NotFound("project", arg)
		}
		return model.Project{}, fmt.Errorf("failed to look up project %q: %w", arg, err)
	}
	return project, nil
}

// Save upserts projects by id.
func (p *GormProjects) Save(ctx context.Context, projects ...model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&projects).Error
}

// MemoryProjects is a fixed in-memory registry.
type MemoryProjects struct {
	mu       sync.RWMutex
	projects map[string]model.Project
}

// NewMemoryProjects creates a registry holding the given projects.
func NewMemoryProjects(projects ...model.Project) *MemoryProjects {
	m := &MemoryProjects{projects: make(map[string]model.Project, len(projects))}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *MemoryProjects) Project(_ context.Context, id string) (model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, apperr.NotFound("project", id)
	}
	return p, nil
}

func (m *MemoryProjects) ProjectByName(_ context.Context, name string) (model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = strings.TrimSpace(name)
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Project{}, apperr.NotFound("project", name)
}
