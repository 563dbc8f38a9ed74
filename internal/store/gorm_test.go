package store

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ResourceRow{}, &model.Project{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestGormStore_GetNotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "resources" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "name", "status", "version", "document"}))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetDatabaseError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "resources" WHERE id = $1`)).
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.Get(context.Background(), "S-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	next := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	slot := model.Resource{
		ID: "S-1", Kind: model.KindSlot, Name: "Bay 1", Size: "4U",
		Status: model.StatusOccupied, Health: 72.5, Version: 4,
		NextMaintenanceDate: next,
		ActiveBookingID:     "b1",
		BoundProjectName:    "Falcon",
		BookingHistory: []model.Booking{
			{ID: "b1", ResourceID: "S-1", Status: model.BookingActive, ReservedByName: "Kim"},
		},
		ReplacementHistory: []model.MaintenanceLogEntry{{ID: "l1", PartOrSubject: "fan"}},
	}
	require.NoError(t, s.Put(ctx, slot))

	got, err := s.Get(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, slot.Name, got.Name)
	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, 72.5, got.Health)
	assert.True(t, next.Equal(got.NextMaintenanceDate))
	require.Len(t, got.BookingHistory, 1)
	assert.Equal(t, "Kim", got.BookingHistory[0].ReservedByName)
	assert.NotNil(t, got.ActiveBooking())

	// Put overwrites unconditionally.
	slot.Version = 5
	slot.Status = model.StatusAvailable
	slot.ActiveBookingID = ""
	require.NoError(t, s.Put(ctx, slot))
	got, err = s.Get(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)
	assert.Equal(t, model.StatusAvailable, got.Status)

	list, err := s.List(ctx, Filter{Status: model.StatusAvailable, Query: "bay"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGormStore_ReplaceKind(t *testing.T) {
	db := newSQLiteDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	for _, r := range seedResources() {
		require.NoError(t, s.Put(ctx, r))
	}

	require.NoError(t, s.ReplaceKind(ctx, model.KindSlot, nil))
	slots, err := s.List(ctx, Filter{Kind: model.KindSlot})
	require.NoError(t, err)
	assert.Empty(t, slots)

	units, err := s.List(ctx, Filter{Kind: model.KindUnit})
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestGormProjects(t *testing.T) {
	db := newSQLiteDB(t)
	reg := NewGormProjects(db)
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, model.Project{ID: "P-1", Name: "Falcon"}))

	p, err := reg.Project(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, "Falcon", p.Name)

	p, err = reg.ProjectByName(ctx, " Falcon ")
	require.NoError(t, err)
	assert.Equal(t, "P-1", p.ID)

	_, err = reg.Project(ctx, "P-404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
