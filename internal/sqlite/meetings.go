package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// AddMeeting records a meeting and returns it with its generated id.
func (b *Backend) AddMeeting(ctx context.Context, m types.Meeting) (types.Meeting, error) {
	if err := types.Validate(m); err != nil {
		return types.Meeting{}, err
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDateIDs(ctx, tx, m.DateID, m.DateID); err != nil {
			return err
		}
		if m.MeetingID == "" {
			m.MeetingID = newID(idPrefixes[types.TableMeeting])
		}
		m.CreatedAt = b.now().UTC()
		_, err := tx.ExecContext(ctx, `INSERT INTO fact_meeting (meeting_id, date_id, dept_id, meeting_title, meeting_type,
			organizer_person_id, minutes, created_ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.MeetingID, m.DateID, m.DeptID, m.Title, nullString(m.MeetingType), nullString(m.OrganizerPersonID),
			nullString(m.Minutes), formatTime(m.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting meeting: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Meeting{}, err
	}
	return m, nil
}

// AddDecision records a decision taken in an existing meeting.
func (b *Backend) AddDecision(ctx context.Context, d types.Decision) (types.Decision, error) {
	if err := types.Validate(d); err != nil {
		return types.Decision{}, err
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if err := mustExist(ctx, tx, "fact_meeting", "meeting_id", d.MeetingID); err != nil {
			return err
		}
		if d.DecisionID == "" {
			d.DecisionID = newID(idPrefixes[types.TableDecision])
		}
		d.CreatedAt = b.now().UTC()
		_, err := tx.ExecContext(ctx, `INSERT INTO fact_decision (decision_id, meeting_id, dept_id, decision_text,
			decided_by, created_ts) VALUES (?, ?, ?, ?, ?, ?)`,
			d.DecisionID, d.MeetingID, d.DeptID, d.DecisionText, nullString(d.DecidedBy), formatTime(d.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting decision: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Decision{}, err
	}
	return d, nil
}

// AddAction records an action item. Meeting and decision references, when
// given, must exist.
func (b *Backend) AddAction(ctx context.Context, a types.ActionItem) (types.ActionItem, error) {
	if a.Status == "" {
		a.Status = types.StatusOpen
	}
	a.LinkedWorkID = ""
	if err := types.Validate(a); err != nil {
		return types.ActionItem{}, err
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if a.MeetingID != "" {
			if err := mustExist(ctx, tx, "fact_meeting", "meeting_id", a.MeetingID); err != nil {
				return err
			}
		}
		if a.DecisionID != "" {
			if err := mustExist(ctx, tx, "fact_decision", "decision_id", a.DecisionID); err != nil {
				return err
			}
		}
		if err := ensureDateSpan(ctx, tx, a.DueDateID, 0); err != nil {
			return err
		}
		if a.ActionID == "" {
			a.ActionID = newID(idPrefixes[types.TableAction])
		}
		now := b.now().UTC()
		a.CreatedAt, a.UpdatedAt = now, now
		_, err := tx.ExecContext(ctx, `INSERT INTO fact_meeting_action (action_id, meeting_id, decision_id, dept_id,
			owner_person_id, action_title, status, due_date_id, progress_percent, linked_work_id, created_ts, updated_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
			a.ActionID, nullString(a.MeetingID), nullString(a.DecisionID), a.DeptID, nullString(a.OwnerPersonID),
			a.Title, string(a.Status), nullInt(a.DueDateID), a.ProgressPercent, formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("inserting action: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.ActionItem{}, err
	}
	return a, nil
}

// GetAction returns one action item.
func (b *Backend) GetAction(ctx context.Context, id string) (types.ActionItem, error) {
	if id == "" {
		return types.ActionItem{}, types.ErrInvalidID
	}
	db, release, err := b.conn()
	if err != nil {
		return types.ActionItem{}, err
	}
	defer release()
	return getAction(ctx, db, id)
}

const actionColumns = `action_id, COALESCE(meeting_id, ''), COALESCE(decision_id, ''), COALESCE(dept_id, ''),
	COALESCE(owner_person_id, ''), action_title, status, COALESCE(due_date_id, 0), progress_percent,
	COALESCE(linked_work_id, ''), COALESCE(created_ts, ''), COALESCE(updated_ts, '')`

func getAction(ctx context.Context, q querier, id string) (types.ActionItem, error) {
	a, err := scanAction(q.QueryRowContext(ctx, "SELECT "+actionColumns+" FROM fact_meeting_action WHERE action_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ActionItem{}, fmt.Errorf("action %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.ActionItem{}, fmt.Errorf("getting action %s: %w", id, err)
	}
	return a, nil
}

func scanAction(row rowScanner) (types.ActionItem, error) {
	var (
		a                types.ActionItem
		status           string
		created, updated string
	)
	if err := row.Scan(&a.ActionID, &a.MeetingID, &a.DecisionID, &a.DeptID, &a.OwnerPersonID, &a.Title, &status,
		&a.DueDateID, &a.ProgressPercent, &a.LinkedWorkID, &created, &updated); err != nil {
		return types.ActionItem{}, err
	}
	a.Status = types.WorkStatus(status)
	a.CreatedAt = parseTimestamp(created)
	a.UpdatedAt = parseTimestamp(updated)
	return a, nil
}

// ListActions returns action items, optionally for one department, oldest
// first.
func (b *Backend) ListActions(ctx context.Context, deptID string) ([]types.ActionItem, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT " + actionColumns + " FROM fact_meeting_action"
	var args []any
	if deptID != "" {
		query += " WHERE dept_id = ?"
		args = append(args, deptID)
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY created_ts, rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	var out []types.ActionItem
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PromoteAction materializes a work item from an action item and stamps the
// action with the new work id. An action is promoted at most once; a second
// call returns ErrAlreadyPromoted.
func (b *Backend) PromoteAction(ctx context.Context, actionID string) (types.WorkItem, error) {
	if actionID == "" {
		return types.WorkItem{}, types.ErrInvalidID
	}
	var w types.WorkItem
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		a, err := getAction(ctx, tx, actionID)
		if err != nil {
			return err
		}
		if a.LinkedWorkID != "" {
			return fmt.Errorf("action %s -> %s: %w", actionID, a.LinkedWorkID, types.ErrAlreadyPromoted)
		}
		w = types.WorkItem{
			DeptID:          a.DeptID,
			ActionID:        a.ActionID,
			OwnerPersonID:   a.OwnerPersonID,
			Title:           a.Title,
			WorkType:        "Action",
			Status:          types.StatusPlanned,
			ProgressPercent: a.ProgressPercent,
			DueDateID:       a.DueDateID,
		}
		if err := types.Validate(w); err != nil {
			return err
		}
		if err := b.upsertWorkItem(ctx, tx, &w); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE fact_meeting_action SET linked_work_id = ?, updated_ts = ? WHERE action_id = ?",
			w.WorkID, formatTime(w.UpdatedAt), actionID)
		if err != nil {
			return fmt.Errorf("linking action: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.WorkItem{}, err
	}
	b.log.Info("action promoted", "action_id", actionID, "work_id", w.WorkID)
	return w, nil
}

func mustExist(ctx context.Context, q querier, table, keyCol, id string) error {
	var one int
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, keyCol), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", table, id, err)
	}
	return nil
}
