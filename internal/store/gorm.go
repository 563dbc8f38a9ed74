package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
)

// ResourceRow is the persisted form of a resource: the columns used for
// filtering plus the full resource as a JSON document.
type ResourceRow struct {
	ID                 string    `gorm:"primaryKey;size:64"`
	Kind               string    `gorm:"index;size:16;not null"`
	Name               string    `gorm:"size:256;not null"`
	Status             string    `gorm:"index;size:32;not null"`
	Version            int64     `gorm:"not null"`
	BoundCounterpartID string    `gorm:"size:64"`
	Document           []byte    `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (ResourceRow) TableName() string { return "resources" }

// GormStore implements Repository on top of GORM.
type GormStore struct {
	db *gorm.DB
}

var _ Repository = (*GormStore)(nil)

// NewGormStore creates a new GORM-backed repository.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection for collaborators sharing it.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Get(ctx context.Context, id string) (model.Resource, error) {
	var row ResourceRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Resource{}, apperr.NotFound("resource", id)
		}
		return model.Resource{}, fmt.Errorf("failed to load resource %s: %w", id, err)
	}
	return decodeRow(row)
}

func (s *GormStore) List(ctx context.Context, f Filter) ([]model.Resource, error) {
	q := s.db.WithContext(ctx).Order("id")
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var rows []ResourceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	out := make([]model.Resource, 0, len(rows))
	for _, row := range rows {
		r, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *GormStore) Put(ctx context.Context, r model.Resource) error {
	row, err := encodeRow(r)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save resource %s: %w", r.ID, err)
	}
	return nil
}

func (s *GormStore) ReplaceKind(ctx context.Context, kind model.Kind, resources []model.Resource) error {
	rows := make([]ResourceRow, 0, len(resources))
	for _, r := range resources {
		row, err := encodeRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("kind = ?", string(kind)).Delete(&ResourceRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear %s resources: %w", kind, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert %s resources: %w", kind, err)
		}
		return nil
	})
}

func encodeRow(r model.Resource) (ResourceRow, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return ResourceRow{}, fmt.Errorf("failed to encode resource %s: %w", r.ID, err)
	}
	return ResourceRow{
		ID:                 r.ID,
		Kind:               string(r.Kind),
		Name:               r.Name,
		Status:             string(r.Status),
		Version:            r.Version,
		BoundCounterpartID: r.BoundCounterpartID,
		Document:           doc,
		UpdatedAt:          time.Now().UTC(),
	}, nil
}

func decodeRow(row ResourceRow) (model.Resource, error) {
	var r model.Resource
	if err := json.Unmarshal(row.Document, &r); err != nil {
		return model.Resource{}, fmt.Errorf("failed to decode resource %s: %w", row.ID, err)
	}
	return r, nil
}
