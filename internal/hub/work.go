package hub

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// RecordFact appends a KPI fact. The department defaults to the KPI's owner
// and must be writable by the caller.
func (s *Service) RecordFact(ctx context.Context, f types.KPIFact) (types.KPIFact, error) {
	kpi, _, err := s.readableKPI(ctx, f.KPIID)
	if err != nil {
		return types.KPIFact{}, err
	}
	if f.DeptID == "" {
		f.DeptID = kpi.DeptID
	}
	if _, err := s.requireDept(ctx, f.DeptID); err != nil {
		return types.KPIFact{}, err
	}
	return s.store.RecordKPIFact(ctx, f)
}

// SaveWorkItem creates or updates a work item. Updates may not move an item
// out of a department the caller cannot write.
func (s *Service) SaveWorkItem(ctx context.Context, w types.WorkItem) (types.WorkItem, error) {
	if w.WorkID != "" {
		cur, err := s.store.GetWorkItem(ctx, w.WorkID)
		switch {
		case err == nil:
			if _, err := s.requireDept(ctx, cur.DeptID); err != nil {
				return types.WorkItem{}, err
			}
		case !isNotFound(err):
			return types.WorkItem{}, err
		}
	}
	if _, err := s.requireDept(ctx, w.DeptID); err != nil {
		return types.WorkItem{}, err
	}
	return s.store.UpsertWorkItem(ctx, w)
}

// AddWorkUpdate appends a progress update to a work item the caller can
// write, refreshing the item's cached progress.
func (s *Service) AddWorkUpdate(ctx context.Context, u types.WorkUpdate) (types.WorkUpdate, error) {
	w, err := s.store.GetWorkItem(ctx, u.WorkID)
	if err != nil {
		return types.WorkUpdate{}, err
	}
	if _, err := s.requireDept(ctx, w.DeptID); err != nil {
		return types.WorkUpdate{}, err
	}
	return s.store.AddWorkUpdate(ctx, u)
}

// WorkItems lists the work items visible to the caller.
func (s *Service) WorkItems(ctx context.Context, deptID string) ([]types.WorkItem, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return nil, err
	}
	return s.store.ListWorkItems(ctx, scope)
}

// WorkUpdates lists a work item's updates, newest first.
func (s *Service) WorkUpdates(ctx context.Context, workID string) ([]types.WorkUpdate, error) {
	w, err := s.store.GetWorkItem(ctx, workID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireDept(ctx, w.DeptID); err != nil {
		return nil, err
	}
	return s.store.ListWorkUpdates(ctx, workID)
}

// AddMeeting records a meeting in a department the caller can write.
func (s *Service) AddMeeting(ctx context.Context, m types.Meeting) (types.Meeting, error) {
	if _, err := s.requireDept(ctx, m.DeptID); err != nil {
		return types.Meeting{}, err
	}
	return s.store.AddMeeting(ctx, m)
}

// AddDecision records a decision taken in a meeting.
func (s *Service) AddDecision(ctx context.Context, d types.Decision) (types.Decision, error) {
	if _, err := s.requireDept(ctx, d.DeptID); err != nil {
		return types.Decision{}, err
	}
	return s.store.AddDecision(ctx, d)
}

// AddAction records an action item.
func (s *Service) AddAction(ctx context.Context, a types.ActionItem) (types.ActionItem, error) {
	if _, err := s.requireDept(ctx, a.DeptID); err != nil {
		return types.ActionItem{}, err
	}
	return s.store.AddAction(ctx, a)
}

// Actions lists the action items visible to the caller.
func (s *Service) Actions(ctx context.Context, deptID string) ([]types.ActionItem, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return nil, err
	}
	return s.store.ListActions(ctx, scope)
}

// PromoteAction turns an action item into a work item.
func (s *Service) PromoteAction(ctx context.Context, actionID string) (types.WorkItem, error) {
	a, err := s.store.GetAction(ctx, actionID)
	if err != nil {
		return types.WorkItem{}, err
	}
	if _, err := s.requireDept(ctx, a.DeptID); err != nil {
		return types.WorkItem{}, err
	}
	return s.store.PromoteAction(ctx, actionID)
}

func isNotFound(err error) bool { return errors.Is(err, types.ErrNotFound) }
