package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func TestUpsertWorkItem(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	w, err := b.UpsertWorkItem(ctx, types.WorkItem{
		DeptID:    "IT",
		Title:     "Database Migration",
		Priority:  types.PriorityHigh,
		RiskLevel: types.RiskHigh,
		DueDateID: 20240801,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(w.WorkID, "W_"))
	assert.Equal(t, types.StatusPlanned, w.Status, "status defaults to Planned")

	w.Status = types.StatusInProgress
	w.ProgressPercent = 20
	_, err = b.UpsertWorkItem(ctx, w)
	require.NoError(t, err)

	got, err := b.GetWorkItem(ctx, w.WorkID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)
	assert.Equal(t, 20.0, got.ProgressPercent)
	assert.Equal(t, 20240801, got.DueDateID)
	assert.Equal(t, types.RiskHigh, got.RiskLevel)

	items, err := b.ListWorkItems(ctx, "IT")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	items, err = b.ListWorkItems(ctx, "MDS")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpsertWorkItemValidation(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	tests := []struct {
		name string
		item types.WorkItem
	}{
		{"missing title", types.WorkItem{DeptID: "IT"}},
		{"missing department", types.WorkItem{Title: "x"}},
		{"unknown status", types.WorkItem{DeptID: "IT", Title: "x", Status: "Someday"}},
		{"unknown risk", types.WorkItem{DeptID: "IT", Title: "x", RiskLevel: "Extreme"}},
		{"progress over 100", types.WorkItem{DeptID: "IT", Title: "x", ProgressPercent: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.UpsertWorkItem(ctx, tt.item)
			assert.ErrorIs(t, err, types.ErrInvalidData)
		})
	}

	_, err := b.GetWorkItem(ctx, "W_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddWorkUpdateRefreshesProgress(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	w, err := b.UpsertWorkItem(ctx, types.WorkItem{DeptID: "MDS", Title: "Q1 campaign", ProgressPercent: 10})
	require.NoError(t, err)

	steps := []struct {
		dateID   int
		progress float64
		want     float64
	}{
		{20240610, 50, 50},
		{20240605, 20, 50}, // backdated update does not win
		{20240610, 55, 55}, // same day, later write wins
		{20240612, 70, 70},
	}
	for _, s := range steps {
		u, err := b.AddWorkUpdate(ctx, types.WorkUpdate{WorkID: w.WorkID, DateID: s.dateID, ProgressPercent: s.progress,
			Narrative: "progress", DecisionNeeded: s.progress > 60})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u.UpdateID, "WU_"))

		got, err := b.GetWorkItem(ctx, w.WorkID)
		require.NoError(t, err)
		assert.Equal(t, s.want, got.ProgressPercent, "after update on %d", s.dateID)
	}

	updates, err := b.ListWorkUpdates(ctx, w.WorkID)
	require.NoError(t, err)
	require.Len(t, updates, 4)
	assert.Equal(t, 70.0, updates[0].ProgressPercent)
	assert.True(t, updates[0].DecisionNeeded)
	assert.Equal(t, 20.0, updates[3].ProgressPercent)
}

func TestAddWorkUpdateErrors(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.AddWorkUpdate(ctx, types.WorkUpdate{WorkID: "W_missing", DateID: 20240610, ProgressPercent: 10})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.AddWorkUpdate(ctx, types.WorkUpdate{WorkID: "W_x", DateID: 20240610, ProgressPercent: 101})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestWorkStatusCounts(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	for _, w := range []types.WorkItem{
		{DeptID: "IT", Title: "a", Status: types.StatusPlanned},
		{DeptID: "IT", Title: "b", Status: types.StatusPlanned},
		{DeptID: "IT", Title: "c", Status: types.StatusDone},
		{DeptID: "MDS", Title: "d", Status: types.StatusAtRisk},
	} {
		_, err := b.UpsertWorkItem(ctx, w)
		require.NoError(t, err)
	}

	all, err := b.WorkStatusCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[types.WorkStatus]int{types.StatusPlanned: 2, types.StatusDone: 1, types.StatusAtRisk: 1}, all)

	it, err := b.WorkStatusCounts(ctx, "IT")
	require.NoError(t, err)
	assert.Equal(t, 2, it[types.StatusPlanned])
	assert.Zero(t, it[types.StatusAtRisk])
}
