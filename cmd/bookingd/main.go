package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"asset-booking-backend/config"
	"asset-booking-backend/internal/api"
	"asset-booking-backend/internal/booking"
	"asset-booking-backend/internal/db"
	"asset-booking-backend/internal/guard"
	"asset-booking-backend/internal/inventory"
	"asset-booking-backend/internal/maintenance"
	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/notification"
	"asset-booking-backend/internal/store"
	"asset-booking-backend/internal/upstream"
)

func main() {
	logger := log.New(os.Stdout, "booking-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	projects := store.NewGormProjects(gormDB)
	if err := projects.Save(ctx, seedProjects(cfg.Projects)...); err != nil {
		logger.Fatalf("failed to seed projects: %v", err)
	}

	var repo store.Repository
	switch cfg.Store.Backend {
	case config.BackendMemory:
		repo = store.NewMemoryStore()
		logger.Println("resources are held in memory and will not survive a restart")
	default:
		repo = store.NewGormStore(gormDB)
	}

	metrics.RefreshResourceCounts(ctx, repo)

	g := guard.New(repo)
	bookings := booking.NewManager(g, projects)
	workflow := maintenance.NewWorkflow(g, cfg.Engine.MaintenanceIntervalMonths)
	importer := inventory.NewImporter(g, projects, cfg.Engine.Location())

	deps := api.Deps{
		Repo:          repo,
		Bookings:      bookings,
		Maintenance:   workflow,
		Inventory:     importer,
		DB:            gormDB,
		RiskThreshold: cfg.Engine.RiskThreshold,
	}

	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, repo, webpushOptions)
		pool.Start(ctx)
		deps.Notify = pool
		deps.WebPush = webpushOptions
		logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys are not configured; availability notifications are disabled")
	}

	var notify upstream.Dispatcher
	if pool != nil {
		notify = pool
	}
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	responseCache := cache.New(cacheTTL, 2*cacheTTL)

	syncSvc := upstream.NewService(&cfg.Upstream, importer, notify)
	syncSvc.Invalidate(func() {
		responseCache.Flush()
		metrics.RefreshResourceCounts(ctx, repo)
	})
	go syncSvc.Run(ctx)

	router := api.NewRouter(api.NewHandler(deps), api.RouterOptions{
		RateLimit: cfg.Server.RateLimitPerSec,
		Burst:     cfg.Server.RateLimitBurst,
		CacheTTL:  cacheTTL,
		Cache:     responseCache,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

func seedProjects(in []config.ProjectConfig) []model.Project {
	out := make([]model.Project, 0, len(in))
	for _, p := range in {
		out = append(out, model.Project{ID: p.ID, Name: p.Name})
	}
	return out
}
