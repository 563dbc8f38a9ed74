// Package risk derives a 0-100 risk indicator for resources. Scores are
// computed on read and never stored.
package risk

import (
	"sort"
	"time"

	"asset-booking-backend/internal/model"
)

const (
	lowHealthThreshold = 30
	dueSoonWindow      = 7 * 24 * time.Hour

	lowHealthPoints   = 40
	maintenancePoints = 20
	conflictPoints    = 40
	dueSoonPoints     = 30

	MaxScore = 100
)

// Score returns the risk of r at time now, clamped to [0, MaxScore]. A
// resource with no next maintenance date scheduled earns no due-date points;
// an overdue one counts as due.
func Score(r model.Resource, now time.Time) int {
	score := 0
	if r.Health < lowHealthThreshold {
		score += lowHealthPoints
	}
	if r.Status == model.StatusMaintenance {
		score += maintenancePoints
	}
	if len(r.Conflicts) > 0 {
		score += conflictPoints
	}
	if !r.NextMaintenanceDate.IsZero() && r.NextMaintenanceDate.Sub(now) < dueSoonWindow {
		score += dueSoonPoints
	}
	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// Scored pairs a resource with its score.
type Scored struct {
	Resource model.Resource `json:"resource"`
	Score    int            `json:"score"`
}

// Rank scores resources and returns those above threshold, highest first.
// Ties keep the input order.
func Rank(resources []model.Resource, now time.Time, threshold int) []Scored {
	out := make([]Scored, 0, len(resources))
	for _, r := range resources {
		if s := Score(r, now); s > threshold {
			out = append(out, Scored{Resource: r, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
