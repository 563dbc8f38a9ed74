package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"asset-booking-backend/config"
	"asset-booking-backend/internal/api"
	"asset-booking-backend/internal/booking"
	"asset-booking-backend/internal/db"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/inventory"
	"asset-booking-backend/internal/maintenance"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/mw"
	"asset-booking-backend/internal/store"
	"asset-booking-backend/internal/upstream"
)

var (
	alice = model.Actor{ID: "u-alice", Name: "Alice", Role: model.RoleStandard}
	bob   = model.Actor{ID: "u-bob", Name: "Bob", Role: model.RoleStandard}
)

type dispatched struct {
	mu  sync.Mutex
	ids []string
}

func (d *dispatched) Dispatch(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

// feedServer serves whatever rows currently holds as a single page.
type feedServer struct {
	mu   sync.Mutex
	rows []inventory.Row
}

func (f *feedServer) set(rows []inventory.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var resp upstream.ApiResponse
	resp.Data.Page = 1
	resp.Data.PageSize = 50
	resp.Data.Total = len(f.rows)
	resp.Data.Items = f.rows
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func call(t *testing.T, router http.Handler, method, path string, actor model.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(mw.HeaderActorID, actor.ID)
	req.Header.Set(mw.HeaderActorName, actor.Name)
	req.Header.Set(mw.HeaderActorRole, string(actor.Role))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestBookingLifecycle drives a bound booking end to end on sqlite: the feed
// creates the pool, a unit is booked together with a slot, a stale writer is
// turned away, the pair is released, and a later feed update keeps history.
func TestBookingLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	projects := store.NewGormProjects(testDB)
	require.NoError(t, projects.Save(context.Background(), model.Project{ID: "P-1", Name: "Falcon"}))

	repo := store.NewGormStore(testDB)
	g := guard.New(repo)
	importer := inventory.NewImporter(g, projects, time.UTC)
	notify := &dispatched{}
	router := api.NewRouter(api.NewHandler(api.Deps{
		Repo:          repo,
		Bookings:      booking.NewManager(g, projects),
		Maintenance:   maintenance.NewWorkflow(g, 6),
		Inventory:     importer,
		DB:            testDB,
		Notify:        notify,
		RiskThreshold: 50,
	}), api.RouterOptions{RateLimit: 1000, Burst: 1000, CacheTTL: time.Minute})

	feed := &feedServer{}
	server := httptest.NewServer(feed)
	defer server.Close()
	syncSvc := upstream.NewService(&config.UpstreamConfig{
		Enabled:  true,
		Interval: time.Hour,
		Request:  config.UpstreamRequest{URL: server.URL, PageSize: 50},
	}, importer, notify)

	feed.set([]inventory.Row{
		{Kind: model.KindSlot, ID: "S1", Name: "Bay 1", Classifier: "4 u", Status: "空闲"},
		{Kind: model.KindUnit, ID: "U1", Name: "Device 1", Classifier: "X200", Platform: "arm64", Health: "80%"},
	})
	syncSvc.SyncOnce(context.Background())

	t.Run("Feed creates the pool", func(t *testing.T) {
		s1, err := repo.Get(context.Background(), "S1")
		require.NoError(t, err)
		assert.Equal(t, "4U", s1.Size)
		assert.Equal(t, int64(1), s1.Version)
		u1, err := repo.Get(context.Background(), "U1")
		require.NoError(t, err)
		assert.Equal(t, float64(80), u1.Health)
	})

	t.Run("Bound booking occupies both sides", func(t *testing.T) {
		w := call(t, router, http.MethodPost, "/api/resources/U1/book", alice, gin.H{
			"expectedVersion":           1,
			"bindCounterpartId":         "S1",
			"projectId":                 "P-1",
			"reservedByName":            "Alice",
			"initialConditionConfirmed": true,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = call(t, router, http.MethodGet, "/api/resources/S1", alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var s1 model.Resource
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s1))
		assert.Equal(t, model.StatusOccupied, s1.Status)
		assert.Equal(t, "U1", s1.BoundCounterpartID)
		assert.Equal(t, "Falcon", s1.BoundProjectName)
		require.Len(t, s1.BookingHistory, 1)
		assert.NotEmpty(t, s1.BookingHistory[0].MirrorOf)
	})

	t.Run("Stale writer is turned away", func(t *testing.T) {
		w := call(t, router, http.MethodPost, "/api/resources/U1/release", bob, gin.H{"expectedVersion": 1})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = call(t, router, http.MethodPost, "/api/resources/U1/release", bob, gin.H{"expectedVersion": 2})
		assert.Equal(t, http.StatusForbidden, w.Code, "bob did not reserve the booking")
	})

	t.Run("Release frees the pair", func(t *testing.T) {
		w := call(t, router, http.MethodPost, "/api/resources/U1/release", alice, gin.H{"expectedVersion": 2, "returnConditionConfirmed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		for _, id := range []string{"U1", "S1"} {
			r, err := repo.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, model.StatusAvailable, r.Status, id)
			assert.Empty(t, r.BoundCounterpartID, id)
			assert.Equal(t, int64(3), r.Version, id)
			require.Len(t, r.BookingHistory, 1, id)
			assert.Equal(t, model.BookingCompleted, r.BookingHistory[0].Status, id)
		}
		assert.ElementsMatch(t, []string{"U1", "S1"}, notify.ids)
	})

	t.Run("Feed update keeps history", func(t *testing.T) {
		feed.set([]inventory.Row{
			{Kind: model.KindSlot, ID: "S1", Name: "Bay 1", Classifier: "4U", Status: "available"},
			{Kind: model.KindUnit, ID: "U1", Name: "Device 1", Classifier: "X200", Platform: "arm64", Health: "20"},
		})
		syncSvc.SyncOnce(context.Background())

		u1, err := repo.Get(context.Background(), "U1")
		require.NoError(t, err)
		assert.Equal(t, float64(20), u1.Health)
		assert.Equal(t, int64(4), u1.Version)
		assert.Len(t, u1.BookingHistory, 1)

		s1, err := repo.Get(context.Background(), "S1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), s1.Version, "an unchanged row keeps its version")

		w := call(t, router, http.MethodGet, "/api/risk?min=30", alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var ranked []struct {
			Resource model.Resource `json:"resource"`
			Score    int            `json:"score"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranked))
		require.Len(t, ranked, 1)
		assert.Equal(t, "U1", ranked[0].Resource.ID)
	})
}
