package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func (a *app) kpiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "List KPIs, record readings and check achievement",
	}
	cmd.AddCommand(a.kpiListCmd(), a.kpiRecordCmd(), a.kpiStatusCmd())
	return cmd
}

func (a *app) kpiListCmd() *cobra.Command {
	var dept string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List KPI definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			kpis, err := svc.KPIs(ctx, dept)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, kpis, func() {
				rows := make([][]string, len(kpis))
				for i, k := range kpis {
					rows[i] = []string{k.KPIID, k.KPIName, k.DeptID, k.Unit, string(k.TargetDirection)}
				}
				printTable(out, []string{"kpi", "name", "dept", "unit", "direction"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&dept, "dept", "", "only this department")
	return cmd
}

func (a *app) kpiRecordCmd() *cobra.Command {
	var f types.KPIFact
	cmd := &cobra.Command{
		Use:   "record <kpi-id>",
		Short: "Record a KPI reading",
		Long: `Record appends one reading for a KPI. Readings are never overwritten; the
latest one recorded for a day wins in summaries. The department defaults to
the KPI's owner and the date to today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("actual") {
				return usageError{errors.New("--actual is required")}
			}
			var err error
			if f.DateID, err = dateFlag(cmd, "date", a.today()); err != nil {
				return err
			}
			f.KPIID = args[0]
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.RecordFact(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() {
				fmt.Fprintf(out, "Recorded %s = %s (target %s) on %s as %s\n",
					saved.KPIID, num(saved.Actual), num(saved.Target), date(saved.DateID), saved.RecordID)
			})
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&f.Actual, "actual", 0, "measured value")
	fl.Float64Var(&f.Target, "target", 0, "target value (0 for none)")
	fl.StringVar(&f.DeptID, "dept", "", "department (default: the KPI's owner)")
	fl.String("date", "", "reading date, YYYY-MM-DD or YYYYMMDD (default: today)")
	return cmd
}

func (a *app) kpiStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <kpi-id>",
		Short: "Classify a KPI's latest reading against its target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			st, err := svc.Achievement(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, st, func() {
				status := achievementStyle(st.Achievement.Status).Render(string(st.Achievement.Status))
				printTable(out, []string{"kpi", "date", "actual", "target", "ratio", "status"}, [][]string{{
					st.KPI.KPIName, date(st.Latest.DateID), num(st.Latest.Actual), num(st.Latest.Target),
					strconv.FormatFloat(st.Achievement.Ratio, 'f', 3, 64), status,
				}})
			})
		},
	}
}

func (a *app) trendCmd() *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "trend <kpi-id>",
		Short: "Trend, rolling mean and forecast for one KPI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := dateFlag(cmd, "since", 0)
			if err != nil {
				return err
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			rep, err := svc.Trend(ctx, args[0], since, window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, rep, func() {
				fmt.Fprintln(out, styles.title.Render(rep.KPI.KPIName))
				fmt.Fprintf(out, "Trend: %s (%+.1f%% over the last %d readings)\n",
					rep.Trend.Direction, rep.Trend.Change, rep.Window)
				rows := make([][]string, 0, len(rep.Points)+len(rep.Forecast))
				for _, p := range rep.Points {
					rows = append(rows, []string{date(p.DateID), num(p.Actual), num(p.Target), num(p.Rolling)})
				}
				for _, p := range rep.Forecast {
					rows = append(rows, []string{date(p.DateID), styles.muted.Render(num(p.Value) + " (forecast)"), "", ""})
				}
				printTable(out, []string{"date", "actual", "target", "rolling mean"}, rows)
			})
		},
	}
	cmd.Flags().String("since", "", "first date to include, YYYY-MM-DD or YYYYMMDD")
	cmd.Flags().IntVar(&window, "window", 0, "rolling window and forecast length (default: trend_periods)")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var dept string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Executive summary: department achievement and work status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			sum, err := svc.Summary(ctx, dept)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, sum, func() {
				fmt.Fprintln(out, styles.title.Render("Department achievement"))
				rows := make([][]string, len(sum.Departments))
				for i, d := range sum.Departments {
					rows[i] = []string{d.DeptID, date(d.DateID), strconv.Itoa(d.KPICount),
						num(d.Achievement) + "%", achievementStyle(d.Status).Render(string(d.Status))}
				}
				printTable(out, []string{"dept", "latest", "kpis", "achievement", "status"}, rows)

				fmt.Fprintln(out, styles.title.Render(fmt.Sprintf("Work items (%d)", sum.WorkTotal)))
				var work [][]string
				for _, s := range types.WorkStatuses {
					if n := sum.WorkStatus[s]; n > 0 {
						work = append(work, []string{string(s), strconv.Itoa(n)})
					}
				}
				printTable(out, []string{"status", "count"}, work)
			})
		},
	}
	cmd.Flags().StringVar(&dept, "dept", "", "only this department")
	return cmd
}
