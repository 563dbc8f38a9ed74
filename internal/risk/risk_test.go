package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"asset-booking-backend/internal/model"
)

func TestScore(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		resource model.Resource
		expected int
	}{
		{
			name:     "healthy and idle",
			resource: model.Resource{Health: 95, Status: model.StatusAvailable, NextMaintenanceDate: now.AddDate(0, 3, 0)},
			expected: 0,
		},
		{
			name:     "low health only",
			resource: model.Resource{Health: 29.9, Status: model.StatusAvailable},
			expected: 40,
		},
		{
			name:     "health at threshold is not low",
			resource: model.Resource{Health: 30, Status: model.StatusAvailable},
			expected: 0,
		},
		{
			name:     "in maintenance",
			resource: model.Resource{Health: 80, Status: model.StatusMaintenance},
			expected: 20,
		},
		{
			name:     "conflicts",
			resource: model.Resource{Health: 80, Conflicts: []string{"b-7"}},
			expected: 40,
		},
		{
			name:     "due within a week",
			resource: model.Resource{Health: 80, NextMaintenanceDate: now.Add(6*24*time.Hour + 23*time.Hour)},
			expected: 30,
		},
		{
			name:     "due in exactly seven days is not soon",
			resource: model.Resource{Health: 80, NextMaintenanceDate: now.Add(7 * 24 * time.Hour)},
			expected: 0,
		},
		{
			name:     "overdue",
			resource: model.Resource{Health: 80, NextMaintenanceDate: now.AddDate(0, 0, -2)},
			expected: 30,
		},
		{
			name: "everything clamps to 100",
			resource: model.Resource{
				Health:              10,
				Status:              model.StatusMaintenance,
				Conflicts:           []string{"b-1"},
				NextMaintenanceDate: now.AddDate(0, 0, 3),
			},
			expected: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.resource, now)
			assert.Equal(t, tc.expected, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, MaxScore)
		})
	}
}

func TestRank(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	resources := []model.Resource{
		{ID: "a", Health: 90},
		{ID: "b", Health: 10, Conflicts: []string{"x"}},
		{ID: "c", Health: 10, Status: model.StatusMaintenance},
		{ID: "d", Health: 20},
	}

	ranked := Rank(resources, now, 50)

	ids := make([]string, 0, len(ranked))
	for _, s := range ranked {
		ids = append(ids, s.Resource.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
	assert.Equal(t, 80, ranked[0].Score)
	assert.Equal(t, 60, ranked[1].Score)
	assert.Equal(t, 90.0, resources[0].Health, "ranking must not mutate input")
}
