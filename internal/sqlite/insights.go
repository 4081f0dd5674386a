package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// SaveInsights appends insights to the insight log, assigning ids. Returns
// the stored insights.
func (b *Backend) SaveInsights(ctx context.Context, insights []types.Insight) ([]types.Insight, error) {
	out := make([]types.Insight, len(insights))
	copy(out, insights)
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO log_insights (insight_id, dept_id, insight_type, metric_name,
			insight_text, severity, is_read, created_ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insight insert: %w", err)
		}
		defer stmt.Close()

		for i := range out {
			in := &out[i]
			if in.InsightID == "" {
				in.InsightID = newID(idPrefixes[types.TableInsightLog])
			}
			if in.CreatedAt.IsZero() {
				in.CreatedAt = b.now().UTC()
			}
			if _, err := stmt.ExecContext(ctx, in.InsightID, nullString(in.DeptID), string(in.Category),
				nullString(in.MetricName), in.Text, string(in.Severity), boolInt(in.IsRead), formatTime(in.CreatedAt)); err != nil {
				return fmt.Errorf("inserting insight: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("insights saved", "count", len(out))
	return out, nil
}

// InsightFilter narrows ListInsights. An empty DeptID lists every department.
type InsightFilter struct {
	DeptID     string
	UnreadOnly bool
	Limit      int
}

// ListInsights returns logged insights, newest first.
func (b *Backend) ListInsights(ctx context.Context, f InsightFilter) ([]types.Insight, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		where []string
		args  []any
	)
	if f.DeptID != "" {
		where = append(where, "dept_id = ?")
		args = append(args, f.DeptID)
	}
	if f.UnreadOnly {
		where = append(where, "is_read = 0")
	}
	query := `SELECT insight_id, COALESCE(dept_id, ''), COALESCE(insight_type, ''), COALESCE(metric_name, ''),
		insight_text, COALESCE(severity, ''), is_read, COALESCE(created_ts, '') FROM log_insights`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_ts DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	defer rows.Close()

	var out []types.Insight
	for rows.Next() {
		var (
			in                      types.Insight
			category, severity, crt string
			read                    int
		)
		if err := rows.Scan(&in.InsightID, &in.DeptID, &category, &in.MetricName, &in.Text, &severity, &read, &crt); err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		in.Category = types.InsightCategory(category)
		in.Severity = types.Severity(severity)
		in.IsRead = read != 0
		in.CreatedAt = parseTimestamp(crt)
		out = append(out, in)
	}
	return out, rows.Err()
}

// MarkInsightRead flags a logged insight as read.
func (b *Backend) MarkInsightRead(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, release, err := b.conn()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(ctx, "UPDATE log_insights SET is_read = 1 WHERE insight_id = ?", id)
	if err != nil {
		return fmt.Errorf("marking insight %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("insight %s: %w", id, types.ErrNotFound)
	}
	return nil
}
