package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/analytics"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func (a *app) insightsCmd() *cobra.Command {
	var (
		dept string
		save bool
		top  int
	)
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate plain-language insights, most severe first",
		Long: `Insights looks at the last lookback_days of KPI readings and the open work
items and reports targets missed or met, trends, overdue and high-risk work.
With --save the insights are appended to the insight log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			insights, err := svc.Insights(ctx, dept, save)
			if err != nil {
				return err
			}
			if top > 0 {
				insights = analytics.Top(insights, top)
			}
			out := cmd.OutOrStdout()
			return a.emit(out, insights, func() { printInsights(out, insights, save) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&dept, "dept", "", "only this department")
	f.BoolVar(&save, "save", false, "append the insights to the insight log")
	f.IntVar(&top, "top", 0, "show only the n most severe")
	cmd.AddCommand(a.insightsListCmd(), a.insightsReadCmd())
	return cmd
}

func (a *app) insightsListCmd() *cobra.Command {
	var (
		dept   string
		unread bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the insight log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			insights, err := svc.ListInsights(ctx, dept, unread, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, insights, func() { printInsights(out, insights, true) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&dept, "dept", "", "only this department")
	f.BoolVar(&unread, "unread", false, "only unread insights")
	f.IntVar(&limit, "limit", 0, "at most this many")
	return cmd
}

func (a *app) insightsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <insight-id>...",
		Short: "Mark logged insights as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := svc.MarkInsightRead(ctx, id); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d insight(s) read\n", len(args))
			return nil
		},
	}
}

func printInsights(w io.Writer, insights []types.Insight, withID bool) {
	headers := []string{"severity", "dept", "type", "insight"}
	if withID {
		headers = append([]string{"id"}, headers...)
	}
	rows := make([][]string, len(insights))
	for i, in := range insights {
		row := []string{severityStyle(in.Severity).Render(string(in.Severity)), in.DeptID, string(in.Category), in.Text}
		if withID {
			id := in.InsightID
			if !in.IsRead && id != "" {
				id += " *"
			}
			row = append([]string{id}, row...)
		}
		rows[i] = row
	}
	printTable(w, headers, rows)
}
