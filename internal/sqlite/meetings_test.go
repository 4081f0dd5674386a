package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func TestMeetingDecisionAction(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	m, err := b.AddMeeting(ctx, types.Meeting{DateID: 20240614, DeptID: "BMS", Title: "Audit review", Minutes: "Reviewed findings"})
	require.NoError(t, err)
	require.NotEmpty(t, m.MeetingID)

	d, err := b.AddDecision(ctx, types.Decision{MeetingID: m.MeetingID, DeptID: "BMS", DecisionText: "Close all findings by Q3"})
	require.NoError(t, err)

	a, err := b.AddAction(ctx, types.ActionItem{MeetingID: m.MeetingID, DecisionID: d.DecisionID, DeptID: "BMS",
		Title: "Assign finding owners", DueDateID: 20240630, OwnerPersonID: "P4"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, a.Status)

	actions, err := b.ListActions(ctx, "BMS")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, d.DecisionID, actions[0].DecisionID)
	assert.Empty(t, actions[0].LinkedWorkID)

	_, err = b.AddDecision(ctx, types.Decision{MeetingID: "M_missing", DeptID: "BMS", DecisionText: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.AddAction(ctx, types.ActionItem{DecisionID: "D_missing", DeptID: "BMS", Title: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.AddMeeting(ctx, types.Meeting{DeptID: "BMS", Title: "No date"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestPromoteAction(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	a, err := b.AddAction(ctx, types.ActionItem{DeptID: "IT", Title: "Replace backup tapes", DueDateID: 20240701,
		ProgressPercent: 15, OwnerPersonID: "P5"})
	require.NoError(t, err)

	w, err := b.PromoteAction(ctx, a.ActionID)
	require.NoError(t, err)
	assert.Equal(t, a.ActionID, w.ActionID)
	assert.Equal(t, "Replace backup tapes", w.Title)
	assert.Equal(t, "IT", w.DeptID)
	assert.Equal(t, types.StatusPlanned, w.Status)
	assert.Equal(t, 20240701, w.DueDateID)
	assert.Equal(t, 15.0, w.ProgressPercent)

	stored, err := b.GetWorkItem(ctx, w.WorkID)
	require.NoError(t, err)
	assert.Equal(t, a.ActionID, stored.ActionID)

	linked, err := b.GetAction(ctx, a.ActionID)
	require.NoError(t, err)
	assert.Equal(t, w.WorkID, linked.LinkedWorkID)

	_, err = b.PromoteAction(ctx, a.ActionID)
	assert.ErrorIs(t, err, types.ErrAlreadyPromoted)

	items, err := b.ListWorkItems(ctx, "IT")
	require.NoError(t, err)
	assert.Len(t, items, 1, "a failed second promotion creates nothing")

	_, err = b.PromoteAction(ctx, "A_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.PromoteAction(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}
