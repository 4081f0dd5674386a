package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

const workItemColumns = `work_id, dept_id, COALESCE(strategy_id, ''), COALESCE(kpi_id, ''),
	COALESCE(source_action_id, ''), COALESCE(owner_person_id, ''), work_title, COALESCE(work_type, ''),
	COALESCE(priority, ''), status, progress_percent, COALESCE(start_date_id, 0), COALESCE(due_date_id, 0),
	COALESCE(risk_level, ''), COALESCE(notes, ''), COALESCE(created_ts, ''), COALESCE(updated_ts, '')`

// UpsertWorkItem creates a work item, or overwrites the item with the same
// id. A new item gets a generated id; the creation timestamp of an existing
// item is kept. Returns the stored item.
func (b *Backend) UpsertWorkItem(ctx context.Context, w types.WorkItem) (types.WorkItem, error) {
	if w.Status == "" {
		w.Status = types.StatusPlanned
	}
	if err := types.Validate(w); err != nil {
		return types.WorkItem{}, err
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		return b.upsertWorkItem(ctx, tx, &w)
	})
	if err != nil {
		return types.WorkItem{}, err
	}
	b.log.Debug("work item saved", "work_id", w.WorkID, "dept", w.DeptID, "status", w.Status)
	return w, nil
}

func (b *Backend) upsertWorkItem(ctx context.Context, q querier, w *types.WorkItem) error {
	now := b.now().UTC()
	if w.WorkID == "" {
		w.WorkID = newID(idPrefixes[types.TableWorkItem])
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	_, err := q.ExecContext(ctx, `INSERT INTO fact_work_item (work_id, dept_id, strategy_id, kpi_id, source_action_id,
		owner_person_id, work_title, work_type, priority, status, progress_percent, start_date_id, due_date_id,
		risk_level, notes, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(work_id) DO UPDATE SET dept_id = excluded.dept_id, strategy_id = excluded.strategy_id,
			kpi_id = excluded.kpi_id, source_action_id = excluded.source_action_id,
			owner_person_id = excluded.owner_person_id, work_title = excluded.work_title,
			work_type = excluded.work_type, priority = excluded.priority, status = excluded.status,
			progress_percent = excluded.progress_percent, start_date_id = excluded.start_date_id,
			due_date_id = excluded.due_date_id, risk_level = excluded.risk_level, notes = excluded.notes,
			updated_ts = excluded.updated_ts`,
		w.WorkID, w.DeptID, nullString(w.StrategyID), nullString(w.KPIID), nullString(w.ActionID),
		nullString(w.OwnerPersonID), w.Title, nullString(w.WorkType), nullString(string(w.Priority)),
		string(w.Status), w.ProgressPercent, nullInt(w.StartDateID), nullInt(w.DueDateID),
		nullString(string(w.RiskLevel)), nullString(w.Notes), formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting work item: %w", err)
	}

	// The row may have existed with an older creation time.
	var created string
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(created_ts, '') FROM fact_work_item WHERE work_id = ?", w.WorkID).
		Scan(&created); err == nil && created != "" {
		w.CreatedAt = parseTimestamp(created)
	}
	return ensureDateSpan(ctx, q, w.StartDateID, w.DueDateID)
}

// GetWorkItem returns one work item.
func (b *Backend) GetWorkItem(ctx context.Context, id string) (types.WorkItem, error) {
	if id == "" {
		return types.WorkItem{}, types.ErrInvalidID
	}
	db, release, err := b.conn()
	if err != nil {
		return types.WorkItem{}, err
	}
	defer release()
	return getWorkItem(ctx, db, id)
}

func getWorkItem(ctx context.Context, q querier, id string) (types.WorkItem, error) {
	row := q.QueryRowContext(ctx, "SELECT "+workItemColumns+" FROM fact_work_item WHERE work_id = ?", id)
	w, err := scanWorkItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.WorkItem{}, fmt.Errorf("work item %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("getting work item %s: %w", id, err)
	}
	return w, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (types.WorkItem, error) {
	var (
		w                      types.WorkItem
		priority, status, risk string
		createdStr, updatedStr string
	)
	err := row.Scan(&w.WorkID, &w.DeptID, &w.StrategyID, &w.KPIID, &w.ActionID, &w.OwnerPersonID, &w.Title,
		&w.WorkType, &priority, &status, &w.ProgressPercent, &w.StartDateID, &w.DueDateID, &risk, &w.Notes,
		&createdStr, &updatedStr)
	if err != nil {
		return types.WorkItem{}, err
	}
	w.Priority = types.Priority(priority)
	w.Status = types.WorkStatus(status)
	w.RiskLevel = types.RiskLevel(risk)
	w.CreatedAt = parseTimestamp(createdStr)
	w.UpdatedAt = parseTimestamp(updatedStr)
	return w, nil
}

// ListWorkItems returns work items ordered by due date, optionally for one
// department.
func (b *Backend) ListWorkItems(ctx context.Context, deptID string) ([]types.WorkItem, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT " + workItemColumns + " FROM fact_work_item"
	var args []any
	if deptID != "" {
		query += " WHERE dept_id = ?"
		args = append(args, deptID)
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY COALESCE(due_date_id, 99999999), work_id", args...)
	if err != nil {
		return nil, fmt.Errorf("listing work items: %w", err)
	}
	defer rows.Close()

	var out []types.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work item: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddWorkUpdate appends a progress update and refreshes the item's cached
// progress from its latest update (by date, then creation time). Returns the
// stored update.
func (b *Backend) AddWorkUpdate(ctx context.Context, u types.WorkUpdate) (types.WorkUpdate, error) {
	if err := types.Validate(u); err != nil {
		return types.WorkUpdate{}, err
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getWorkItem(ctx, tx, u.WorkID); err != nil {
			return err
		}
		if err := ensureDateIDs(ctx, tx, u.DateID, u.DateID); err != nil {
			return err
		}
		if u.UpdateID == "" {
			u.UpdateID = newID(idPrefixes[types.TableWorkUpdate])
		}
		u.CreatedAt = b.now().UTC()
		if _, err := tx.ExecContext(ctx, `INSERT INTO fact_work_update (update_id, work_id, date_id, progress_percent,
			update_text, blockers, decision_needed, created_ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			u.UpdateID, u.WorkID, u.DateID, u.ProgressPercent, nullString(u.Narrative), nullString(u.Blockers),
			boolInt(u.DecisionNeeded), formatTime(u.CreatedAt)); err != nil {
			return fmt.Errorf("inserting work update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE fact_work_item SET
			progress_percent = (SELECT progress_percent FROM fact_work_update WHERE work_id = ?
				ORDER BY date_id DESC, created_ts DESC, rowid DESC LIMIT 1),
			updated_ts = ?
			WHERE work_id = ?`, u.WorkID, formatTime(u.CreatedAt), u.WorkID); err != nil {
			return fmt.Errorf("refreshing work item progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.WorkUpdate{}, err
	}
	b.log.Debug("work update added", "work_id", u.WorkID, "progress", u.ProgressPercent)
	return u, nil
}

// ListWorkUpdates returns a work item's updates, newest first.
func (b *Backend) ListWorkUpdates(ctx context.Context, workID string) ([]types.WorkUpdate, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `SELECT update_id, work_id, date_id, progress_percent,
		COALESCE(update_text, ''), COALESCE(blockers, ''), decision_needed, COALESCE(created_ts, '')
		FROM fact_work_update WHERE work_id = ?
		ORDER BY date_id DESC, created_ts DESC, rowid DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("listing work updates: %w", err)
	}
	defer rows.Close()

	var out []types.WorkUpdate
	for rows.Next() {
		var (
			u        types.WorkUpdate
			decision int
			created  string
		)
		if err := rows.Scan(&u.UpdateID, &u.WorkID, &u.DateID, &u.ProgressPercent, &u.Narrative, &u.Blockers,
			&decision, &created); err != nil {
			return nil, fmt.Errorf("scanning work update: %w", err)
		}
		u.DecisionNeeded = decision != 0
		u.CreatedAt = parseTimestamp(created)
		out = append(out, u)
	}
	return out, rows.Err()
}
