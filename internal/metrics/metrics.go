// Package metrics exposes Prometheus instruments for the booking commands
// and the resource pool.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/store"
)

var (
	// commandsTotal counts commands by name and outcome
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_engine_commands_total",
		Help: "Total booking engine commands by command and outcome",
	}, []string{"command", "outcome"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_engine_command_duration_seconds",
		Help:    "Booking engine command duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"command"})

	// resources is refreshed from full listings
	resources = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "booking_engine_resources",
		Help: "Number of resources by kind and status",
	}, []string{"kind", "status"})
)

// Outcome labels err for the commands counter.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrPartialBinding), errors.Is(err, apperr.ErrPartialRelease):
		return "partial"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrValidation):
		return "validation"
	case errors.Is(err, apperr.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, apperr.ErrResourceUnavailable):
		return "unavailable"
	case errors.Is(err, apperr.ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, apperr.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}

// Observe records one finished command.
func Observe(command string, start time.Time, err error) {
	commandsTotal.WithLabelValues(command, Outcome(err)).Inc()
	commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

// SetResourceCounts replaces the pool gauge with counts taken from list.
func SetResourceCounts(list []model.Resource) {
	counts := make(map[[2]string]float64)
	for _, kind := range []model.Kind{model.KindSlot, model.KindUnit} {
		for _, status := range []model.Status{model.StatusAvailable, model.StatusOccupied, model.StatusMaintenance} {
			counts[[2]string{string(kind), string(status)}] = 0
		}
	}
	for _, r := range list {
		counts[[2]string{string(r.Kind), string(r.Status)}]++
	}
	for k, n := range counts {
		resources.WithLabelValues(k[0], k[1]).Set(n)
	}
}

// RefreshResourceCounts recounts the whole pool from repo. A failed listing
// leaves the gauge as it was.
func RefreshResourceCounts(ctx context.Context, repo store.Repository) {
	list, err := repo.List(ctx, store.Filter{})
	if err != nil {
		log.Printf("Failed to refresh resource counts: %v", err)
		return
	}
	SetResourceCounts(list)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
