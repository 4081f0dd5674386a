package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func mustGetTable(t *testing.T, b *Backend, name string) types.Table {
	t.Helper()
	tbl, err := b.GetTable(name)
	require.NoError(t, err)
	return tbl
}

func TestTableReplaceAllAndRead(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableDepartment)

	data := dataset.MustTable(textCols("dept_id", "dept_name")...)
	require.NoError(t, data.Append(dataset.Text("MDS"), dataset.Text("Marketing & Sales")))
	require.NoError(t, data.Append(dataset.Text("IT"), dataset.Text("IT Operations")))
	require.NoError(t, tbl.ReplaceAll(ctx, data))

	replacement := dataset.MustTable(textCols("dept_id", "dept_name")...)
	require.NoError(t, replacement.Append(dataset.Text("BMS"), dataset.Text("Governance & Compliance")))
	require.NoError(t, tbl.ReplaceAll(ctx, replacement))

	got, err := tbl.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	rec := got.Record(0)
	assert.Equal(t, "BMS", rec["dept_id"].String())
	assert.Equal(t, "#3b82f6", rec["color"].String(), "column default applied")
	assert.True(t, rec["description"].IsNull())
}

func TestTableAppendGeneratesKeysAndDates(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableKPIFact)

	data := dataset.MustTable(
		dataset.Column{Name: "date_id", Kind: dataset.KindText},
		dataset.Column{Name: "dept_id", Kind: dataset.KindText},
		dataset.Column{Name: "kpi_id", Kind: dataset.KindText},
		dataset.Column{Name: "actual_value", Kind: dataset.KindNumber},
	)
	require.NoError(t, data.Append(dataset.Text("2024-06-01"), dataset.Text("IT"), dataset.Text("IT_K1"), dataset.Number(99.9)))
	require.NoError(t, data.Append(dataset.Text("20240603"), dataset.Text("IT"), dataset.Text("IT_K1"), dataset.Null()))
	require.NoError(t, tbl.Append(ctx, data))

	got, err := tbl.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	first := got.Record(0)
	assert.True(t, strings.HasPrefix(first["record_id"].String(), "KPI_"))
	assert.Equal(t, "20240601", first["date_id"].String())
	assert.Equal(t, dataset.KindDate, first["created_ts"].Kind())
	assert.True(t, got.Record(1)["actual_value"].IsNull())

	n, err := b.DateCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "the date dimension covers 06-01 through 06-03")
}

func TestTableAppendWideDateSpanKeepsUsedDays(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableKPIFact)

	data := dataset.MustTable(textCols("date_id", "dept_id", "kpi_id")...)
	for _, id := range []string{"19900101", "20100615", "20300101", "20100615"} {
		require.NoError(t, data.Append(dataset.Text(id), dataset.Text("IT"), dataset.Text("IT_K1")))
	}
	require.NoError(t, tbl.Append(ctx, data))

	for _, id := range []int{19900101, 20100615, 20300101} {
		n, err := b.count(ctx, "SELECT COUNT(*) FROM dim_date WHERE date_id = ?", id)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "date %d", id)
	}
	n, err := b.DateCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTableAppendErrors(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	tests := []struct {
		name  string
		table string
		data  func() *dataset.Table
		want  error
	}{
		{
			name:  "missing key on caller-keyed table",
			table: types.TableDepartment,
			data: func() *dataset.Table {
				d := dataset.MustTable(textCols("dept_name")...)
				_ = d.Append(dataset.Text("No Id"))
				return d
			},
			want: types.ErrMissingKey,
		},
		{
			name:  "null key on caller-keyed table",
			table: types.TableDepartment,
			data: func() *dataset.Table {
				d := dataset.MustTable(textCols("dept_id", "dept_name")...)
				_ = d.Append(dataset.Null(), dataset.Text("No Id"))
				return d
			},
			want: types.ErrMissingKey,
		},
		{
			name:  "unknown column",
			table: types.TableDepartment,
			data: func() *dataset.Table {
				return dataset.MustTable(textCols("dept_id", "budget")...)
			},
			want: dataset.ErrUnknownColumn,
		},
		{
			name:  "fractional integer",
			table: types.TableWorkItem,
			data: func() *dataset.Table {
				d := dataset.MustTable(
					dataset.Column{Name: "dept_id", Kind: dataset.KindText},
					dataset.Column{Name: "work_title", Kind: dataset.KindText},
					dataset.Column{Name: "due_date_id", Kind: dataset.KindNumber},
				)
				_ = d.Append(dataset.Text("IT"), dataset.Text("Patch"), dataset.Number(2024.5))
				return d
			},
			want: types.ErrInvalidData,
		},
		{
			name:  "text in numeric column",
			table: types.TableKPIFact,
			data: func() *dataset.Table {
				d := dataset.MustTable(textCols("date_id", "dept_id", "kpi_id", "actual_value")...)
				_ = d.Append(dataset.Text("20240601"), dataset.Text("IT"), dataset.Text("IT_K1"), dataset.Text("lots"))
				return d
			},
			want: types.ErrInvalidData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mustGetTable(t, b, tt.table).Append(ctx, tt.data())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTableAppendIsAtomic(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableDepartment)

	data := dataset.MustTable(textCols("dept_id", "dept_name")...)
	require.NoError(t, data.Append(dataset.Text("IT"), dataset.Text("IT Operations")))
	require.NoError(t, data.Append(dataset.Null(), dataset.Text("Broken")))
	require.Error(t, tbl.Append(ctx, data))

	got, err := tbl.Read(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestTableNullDefaultsApply(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableKPI)

	data := dataset.MustTable(textCols("kpi_id", "kpi_name", "target_direction")...)
	require.NoError(t, data.Append(dataset.Text("K"), dataset.Text("Some KPI"), dataset.Null()))
	require.NoError(t, tbl.Append(ctx, data))

	k, err := b.GetKPI(ctx, "K")
	require.NoError(t, err)
	assert.Equal(t, types.HigherIsBetter, k.TargetDirection)
}

func TestTableUpsert(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	tbl := mustGetTable(t, b, types.TableDepartment)

	require.NoError(t, tbl.Upsert(ctx, dataset.Record{
		"dept_id":   dataset.Text("IT"),
		"dept_name": dataset.Text("IT"),
		"color":     dataset.Text("#8b5cf6"),
	}))
	require.NoError(t, tbl.Upsert(ctx, dataset.Record{
		"dept_id":   dataset.Text("IT"),
		"dept_name": dataset.Text("IT Operations"),
	}))

	depts, err := b.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, "IT Operations", depts[0].DeptName)
	assert.Equal(t, "#8b5cf6", depts[0].Color, "absent columns keep their values")

	err = tbl.Upsert(ctx, dataset.Record{"dept_name": dataset.Text("x")})
	assert.ErrorIs(t, err, types.ErrMissingKey)

	err = tbl.Upsert(ctx, dataset.Record{"dept_id": dataset.Text("IT"), "budget": dataset.Number(1)})
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestTableUpsertStampsUpdated(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	w, err := b.UpsertWorkItem(ctx, types.WorkItem{DeptID: "IT", Title: "Patch servers"})
	require.NoError(t, err)

	tbl := mustGetTable(t, b, types.TableWorkItem)
	require.NoError(t, tbl.Upsert(ctx, dataset.Record{
		"work_id": dataset.Text(w.WorkID),
		"status":  dataset.Text("Done"),
	}))

	got, err := b.GetWorkItem(ctx, w.WorkID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, got.Status)
	assert.Equal(t, "Patch servers", got.Title)
	assert.True(t, got.UpdatedAt.Equal(testNow))
}
