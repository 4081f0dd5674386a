package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
	"github.com/mesh-intelligence/insighthub/internal/watch"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

// tableOutput holds the flags shared by commands that produce a table.
type tableOutput struct {
	out    string
	format string
}

func (o *tableOutput) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.out, "out", "", "write to this file; the extension picks csv, xlsx or json")
	f.StringVar(&o.format, "format", "", "write csv, xlsx or json to stdout")
}

// writeTable sends t to --out, to stdout in --format, or renders it.
func (a *app) writeTable(cmd *cobra.Command, o tableOutput, t *dataset.Table) error {
	out := cmd.OutOrStdout()
	switch {
	case o.out != "":
		if err := tabular.WriteFile(o.out, t); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d row(s) to %s\n", t.Len(), o.out)
		return nil
	case o.format != "":
		f, err := tabular.ParseFormat(o.format)
		if err != nil {
			return usageError{err}
		}
		return tabular.Write(out, t, f)
	}
	records := t.Records()
	if records == nil {
		records = []dataset.Record{}
	}
	return a.emit(out, records, func() { printDataset(out, t) })
}

func (a *app) reportCmd() *cobra.Command {
	var (
		p sqlite.ReportParams
		o tableOutput
	)
	cmd := &cobra.Command{
		Use:       "report <type>",
		Short:     "Run a canned report: " + strings.Join(sqlite.ReportTypes, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: sqlite.ReportTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.FromID, err = dateFlag(cmd, "from", 0); err != nil {
				return err
			}
			if p.ToID, err = dateFlag(cmd, "to", 0); err != nil {
				return err
			}
			p.Type = args[0]
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.Report(ctx, p)
			if err != nil {
				return err
			}
			return a.writeTable(cmd, o, t)
		},
	}
	cmd.Flags().StringVar(&p.DeptID, "dept", "", "only this department")
	cmd.Flags().String("from", "", "first fact date")
	cmd.Flags().String("to", "", "last fact date")
	o.register(cmd)
	return cmd
}

func (a *app) workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Explore stored tables",
	}
	cmd.AddCommand(a.workspaceAggregateCmd())
	return cmd
}

func (a *app) workspaceAggregateCmd() *cobra.Command {
	var (
		spec   dataset.Spec
		funcs  []string
		bucket string
		o      tableOutput
	)
	cmd := &cobra.Command{
		Use:   "aggregate <table>",
		Short: "Group a table and summarize a numeric column",
		Long: `Aggregate groups a stored table by an optional calendar bucket of a date
column and an optional group column, then applies each --func to --field.
Result columns are named field_func.`,
		Example: `  insighthub workspace aggregate fact_kpi_data --field actual_value --func mean --func max --group kpi_id
  insighthub workspace aggregate fact_kpi_data --field actual_value --func sum --date-field created_ts --bucket month`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range funcs {
				spec.Funcs = append(spec.Funcs, dataset.Func(strings.ToLower(f)))
			}
			spec.Bucket = dataset.Granularity(strings.ToLower(bucket))
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.Aggregate(ctx, args[0], spec)
			if err != nil {
				return err
			}
			return a.writeTable(cmd, o, t)
		},
	}
	f := cmd.Flags()
	f.StringVar(&spec.Field, "field", "", "numeric column to summarize")
	f.StringSliceVar(&funcs, "func", []string{string(dataset.Sum)}, "sum, mean, count, min or max; repeatable")
	f.StringVar(&spec.GroupBy, "group", "", "column to group by")
	f.StringVar(&spec.DateField, "date-field", "", "date column to bucket by")
	f.StringVar(&bucket, "bucket", "", "day, week, month or quarter")
	o.register(cmd)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var table, mode string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a CSV, XLSX or JSON file into a table",
		Long: `Import reads a file with a header row and writes it into a stored table,
matching columns by name. Without --table the file name picks the table and
mode the same way the watch folder does, so dim_kpi.replace.csv
replaces dim_kpi.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, err := hub.ParseImportMode(mode)
			if err != nil {
				return usageError{err}
			}
			if table == "" {
				target, err := watch.ParseName(path)
				if err != nil {
					return usageError{err}
				}
				table = target.Table
				if mode == "" {
					m = target.Mode
				}
			}
			data, err := tabular.ReadFile(path)
			if err != nil {
				return err
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Import(ctx, table, data, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, res, func() {
				fmt.Fprintf(out, "Imported %d row(s) from %s into %s (%s)\n", res.Rows, filepath.Base(path), res.Table, res.Mode)
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "target table (default: from the file name)")
	cmd.Flags().StringVar(&mode, "mode", "", "append or replace (default append)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var o tableOutput
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Write a stored table to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.ReadTable(ctx, args[0])
			if err != nil {
				return err
			}
			return a.writeTable(cmd, o, t)
		},
	}
	o.register(cmd)
	return cmd
}
