package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/insighthub/pkg/dateid"
)

// maxFillDays bounds a single contiguous fill. Wider spans only get the days
// the write actually uses.
const maxFillDays = 20 * 366

// EnsureDateRange creates the date-dimension rows for every day from start to
// end inclusive. Existing days are left untouched. It returns the number of
// rows created.
func (b *Backend) EnsureDateRange(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = insertDays(ctx, tx, dateid.Days(start, end))
		return err
	})
	if err != nil {
		return 0, err
	}
	b.log.Debug("date range ensured", "start", start.Format(dateid.Layout), "end", end.Format(dateid.Layout), "created", n)
	return n, nil
}

// ensureDateIDs fills the dimension between two keys inclusive.
func ensureDateIDs(ctx context.Context, q querier, lo, hi int) error {
	return ensureDates(ctx, q, []int{lo, hi})
}

// ensureDates fills the dimension from the lowest to the highest of ids. When
// that span exceeds maxFillDays only the listed days are inserted.
func ensureDates(ctx context.Context, q querier, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	lo, hi := slices.Min(ids), slices.Max(ids)
	start, err := dateid.FromDateID(lo)
	if err != nil {
		return err
	}
	end, err := dateid.FromDateID(hi)
	if err != nil {
		return err
	}
	days := dateid.Days(start, end)
	if len(days) > maxFillDays {
		days = make([]dateid.Dim, 0, len(ids))
		seen := make(map[int]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			t, err := dateid.FromDateID(id)
			if err != nil {
				return err
			}
			days = append(days, dateid.Describe(t))
		}
	}
	_, err = insertDays(ctx, q, days)
	return err
}

func insertDays(ctx context.Context, q querier, days []dateid.Dim) (int, error) {
	created := 0
	for _, d := range days {
		res, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO dim_date (date_id, date, month, quarter, year, week)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			d.DateID, d.Date.Format(dateid.Layout), d.Month, d.Quarter, d.Year, d.Week)
		if err != nil {
			return created, fmt.Errorf("inserting date %d: %w", d.DateID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	return created, nil
}

// DateCount returns the number of rows in the date dimension.
func (b *Backend) DateCount(ctx context.Context) (int, error) {
	return b.count(ctx, "SELECT COUNT(*) FROM dim_date")
}

func (b *Backend) count(ctx context.Context, query string, args ...any) (int, error) {
	db, release, err := b.conn()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}
