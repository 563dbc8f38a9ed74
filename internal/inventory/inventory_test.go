package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/store"
)

var (
	fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	admin    = model.Actor{ID: "a-1", Role: model.RoleAdministrative}
)

func newImporter(t *testing.T, seed ...model.Resource) (*Importer, store.Repository) {
	t.Helper()
	repo := store.NewMemoryStore(seed...)
	projects := store.NewMemoryProjects(model.Project{ID: "P-1", Name: "Falcon"})
	im := NewImporter(guard.New(repo), projects, time.UTC)
	im.now = func() time.Time { return fixedNow }
	return im, repo
}

func get(t *testing.T, repo store.Repository, id string) model.Resource {
	t.Helper()
	r, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func unitRows() []Row {
	return []Row{
		{ID: "U1", Name: "Device 1", Classifier: "X200", Platform: "arm64", Status: "available", Health: "88%", NextMaintenanceDate: "2026-12-01"},
		{ID: "U2", Name: "Device 2", Classifier: "X300", Platform: "x86", Status: "使用中", BoundProjectName: "Falcon", Health: "25"},
		{ID: "U3", Name: "Device 3", Classifier: "X300", Status: "维修中"},
	}
}

func TestImport_RequiresAdministrator(t *testing.T) {
	im, _ := newImporter(t)
	_, err := im.Import(context.Background(), model.Actor{ID: "m", Role: model.RoleManager}, model.KindUnit, unitRows())
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestImport_Creates(t *testing.T) {
	im, repo := newImporter(t)

	rep, err := im.Import(context.Background(), admin, model.KindUnit, unitRows())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Created)
	assert.Empty(t, rep.Warnings)

	u1 := get(t, repo, "U1")
	assert.Equal(t, model.KindUnit, u1.Kind)
	assert.Equal(t, model.StatusAvailable, u1.Status)
	assert.Equal(t, float64(88), u1.Health)
	assert.Equal(t, int64(1), u1.Version)
	assert.True(t, u1.NextMaintenanceDate.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)))

	u2 := get(t, repo, "U2")
	assert.Equal(t, model.StatusOccupied, u2.Status)
	assert.Equal(t, "P-1", u2.BoundProjectID)
	active := u2.ActiveBooking()
	require.NotNil(t, active, "occupied rows get a booking")
	assert.Empty(t, active.ReservedByActorID)
	assert.Equal(t, "Falcon", active.ProjectName)

	u3 := get(t, repo, "U3")
	assert.Equal(t, model.StatusMaintenance, u3.Status)
	assert.Equal(t, float64(100), u3.Health, "blank health is healthy")
}

func TestImport_Idempotent(t *testing.T) {
	im, repo := newImporter(t)
	ctx := context.Background()

	_, err := im.Import(ctx, admin, model.KindUnit, unitRows())
	require.NoError(t, err)
	first := get(t, repo, "U2")

	rep, err := im.Import(ctx, admin, model.KindUnit, unitRows())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Unchanged)
	assert.Zero(t, rep.Created+rep.Updated+rep.Removed)
	assert.Equal(t, first, get(t, repo, "U2"))
}

func TestImport_UpdatesKeepHistory(t *testing.T) {
	seeded := model.Resource{
		ID: "U1", Kind: model.KindUnit, Name: "Device 1", Model: "X200", Platform: "arm64",
		Status: model.StatusOccupied, Health: 70, Version: 4, ActiveBookingID: "bk-1",
		BookingHistory: []model.Booking{
			{ID: "bk-1", ResourceID: "U1", ReservedByActorID: "u-alice", Status: model.BookingActive},
			{ID: "bk-0", ResourceID: "U1", Status: model.BookingCompleted},
		},
		ReplacementHistory: []model.MaintenanceLogEntry{{ID: "log-1", PartOrSubject: "fan"}},
	}
	im, repo := newImporter(t, seeded)

	rep, err := im.Import(context.Background(), admin, model.KindUnit, []Row{
		{ID: "U1", Name: "Device 1", Classifier: "X200", Platform: "arm64", Status: "available", Health: "70"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, []string{"U1"}, rep.Freed)

	u1 := get(t, repo, "U1")
	assert.Equal(t, int64(5), u1.Version)
	assert.Equal(t, model.StatusAvailable, u1.Status)
	assert.Empty(t, u1.ActiveBookingID)
	require.Len(t, u1.BookingHistory, 2)
	assert.Equal(t, model.BookingCompleted, u1.BookingHistory[0].Status, "the active booking is closed")
	assert.Len(t, u1.ReplacementHistory, 1)
}

func TestImport_RejectsBadRows(t *testing.T) {
	testCases := []struct {
		name string
		rows []Row
	}{
		{"other kind", []Row{{Kind: model.KindSlot, ID: "S1"}}},
		{"missing id", []Row{{Name: "nameless"}}},
		{"duplicate id", []Row{{ID: "U1"}, {ID: "U1"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			im, repo := newImporter(t)
			_, err := im.Import(context.Background(), admin, model.KindUnit, tc.rows)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			all, err := repo.List(context.Background(), store.Filter{})
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestImport_Warnings(t *testing.T) {
	im, repo := newImporter(t)

	rep, err := im.Import(context.Background(), admin, model.KindSlot, []Row{
		{ID: "S1", Name: "Bay 1", Classifier: "4 u", Status: "on fire", Health: "great", NextMaintenanceDate: "soon", BoundProjectName: "Osprey"},
	})
	require.NoError(t, err)
	assert.Len(t, rep.Warnings, 4)

	s1 := get(t, repo, "S1")
	assert.Equal(t, model.StatusAvailable, s1.Status)
	assert.Equal(t, "4U", s1.Size)
	assert.Equal(t, float64(100), s1.Health)
	assert.True(t, s1.NextMaintenanceDate.IsZero())
}

func TestImport_BindsAndReconciles(t *testing.T) {
	slotA := model.Resource{ID: "A", Kind: model.KindSlot, Name: "Bay A", Status: model.StatusOccupied, Version: 2,
		ActiveBookingID: "bk-a", BookingHistory: []model.Booking{{ID: "bk-a", Status: model.BookingActive}}}
	im, repo := newImporter(t, slotA)

	rep, err := im.Import(context.Background(), admin, model.KindUnit, []Row{
		{ID: "U1", Name: "Device 1", Status: "occupied", BoundCounterpartName: "Bay A"},
		{ID: "U2", Name: "Device 2", Status: "occupied", BoundCounterpartName: "Bay A"},
		{ID: "U3", Name: "Device 3", Status: "available", BoundCounterpartName: "Bay A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reconciled)
	assert.Len(t, rep.Warnings, 2, "second claim and non-occupied binding are reported")

	assert.Equal(t, "A", get(t, repo, "U1").BoundCounterpartID)
	assert.Empty(t, get(t, repo, "U2").BoundCounterpartID)
	assert.Empty(t, get(t, repo, "U3").BoundCounterpartID)
	a := get(t, repo, "A")
	assert.Equal(t, "U1", a.BoundCounterpartID)
	assert.Equal(t, int64(3), a.Version)
}

func TestImport_FreeCounterpartIsNotBound(t *testing.T) {
	slotA := model.Resource{ID: "A", Kind: model.KindSlot, Name: "Bay A", Status: model.StatusAvailable, Version: 1}
	im, repo := newImporter(t, slotA)

	rep, err := im.Import(context.Background(), admin, model.KindUnit, []Row{
		{ID: "U1", Name: "Device 1", Status: "occupied", BoundCounterpartName: "Bay A"},
	})
	require.NoError(t, err)
	assert.Zero(t, rep.Reconciled)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "binding dropped")

	u1 := get(t, repo, "U1")
	assert.Equal(t, model.StatusOccupied, u1.Status)
	assert.Empty(t, u1.BoundCounterpartID, "no half-bound pair")
	a := get(t, repo, "A")
	assert.Empty(t, a.BoundCounterpartID)
	assert.Equal(t, model.StatusAvailable, a.Status)
	assert.Equal(t, int64(1), a.Version)
}

func TestImport_VanishedPairIsUnbound(t *testing.T) {
	slotA := model.Resource{ID: "A", Kind: model.KindSlot, Name: "Bay A", Status: model.StatusOccupied, Version: 2,
		BoundCounterpartID: "U1", ActiveBookingID: "bk-a", BookingHistory: []model.Booking{{ID: "bk-a", Status: model.BookingActive}}}
	unit1 := model.Resource{ID: "U1", Kind: model.KindUnit, Name: "Device 1", Status: model.StatusOccupied, Version: 2,
		BoundCounterpartID: "A", ActiveBookingID: "bk-u", BookingHistory: []model.Booking{{ID: "bk-u", Status: model.BookingActive}}}
	im, repo := newImporter(t, slotA, unit1)

	rep, err := im.Import(context.Background(), admin, model.KindUnit, []Row{{ID: "U9", Name: "Device 9"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, 1, rep.Reconciled)

	a := get(t, repo, "A")
	assert.Empty(t, a.BoundCounterpartID)
	_, err = repo.Get(context.Background(), "U1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExport_RoundTrip(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()

	_, err := im.Import(ctx, admin, model.KindUnit, unitRows())
	require.NoError(t, err)

	rows, err := im.Export(ctx, model.KindUnit)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "U1", rows[0].ID)
	assert.Equal(t, "X200", rows[0].Classifier)
	assert.Equal(t, "88", rows[0].Health)
	assert.Equal(t, "2026-12-01", rows[0].NextMaintenanceDate)
	assert.Equal(t, "occupied", rows[1].Status)
	assert.Equal(t, "Falcon", rows[1].BoundProjectName)

	rep, err := im.Import(ctx, admin, model.KindUnit, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Unchanged)
}
