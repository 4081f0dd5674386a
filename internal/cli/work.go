package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func (a *app) workCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Track work items and their progress",
	}
	cmd.AddCommand(a.workListCmd(), a.workAddCmd(), a.workUpdateCmd(), a.workUpdatesCmd())
	return cmd
}

func (a *app) workListCmd() *cobra.Command {
	var dept string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			items, err := svc.WorkItems(ctx, dept)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, items, func() {
				rows := make([][]string, len(items))
				for i, w := range items {
					rows[i] = []string{w.WorkID, w.DeptID, w.Title, string(w.Status), string(w.Priority),
						string(w.RiskLevel), num(w.ProgressPercent) + "%", date(w.DueDateID)}
				}
				printTable(out, []string{"id", "dept", "title", "status", "priority", "risk", "progress", "due"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&dept, "dept", "", "only this department")
	return cmd
}

func (a *app) workAddCmd() *cobra.Command {
	var (
		w                      types.WorkItem
		status, priority, risk string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a work item, or replace one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if w.StartDateID, err = dateFlag(cmd, "start", 0); err != nil {
				return err
			}
			if w.DueDateID, err = dateFlag(cmd, "due", 0); err != nil {
				return err
			}
			w.Status, w.Priority, w.RiskLevel = types.WorkStatus(status), types.Priority(priority), types.RiskLevel(risk)
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.SaveWorkItem(ctx, w)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() {
				fmt.Fprintf(out, "Saved work item %s (%s)\n", saved.WorkID, saved.Status)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&w.WorkID, "id", "", "existing work item to replace")
	f.StringVar(&w.DeptID, "dept", "", "owning department")
	f.StringVar(&w.Title, "title", "", "title")
	f.StringVar(&w.WorkType, "type", "", "free-text work type")
	f.StringVar(&status, "status", "", "Open, Planned, In Progress, At Risk, On Hold, Done, Cancelled or Closed (default Planned)")
	f.StringVar(&priority, "priority", "", "Low, Medium, High or Critical")
	f.StringVar(&risk, "risk", "", "Low, Medium or High")
	f.Float64Var(&w.ProgressPercent, "progress", 0, "progress percent")
	f.StringVar(&w.KPIID, "kpi", "", "KPI the work supports")
	f.StringVar(&w.StrategyID, "strategy", "", "strategy the work rolls up to")
	f.StringVar(&w.OwnerPersonID, "owner", "", "owner person id")
	f.StringVar(&w.Notes, "notes", "", "notes")
	f.String("start", "", "start date")
	f.String("due", "", "due date")
	return cmd
}

func (a *app) workUpdateCmd() *cobra.Command {
	var u types.WorkUpdate
	cmd := &cobra.Command{
		Use:   "update <work-id>",
		Short: "Report progress on a work item",
		Long: `Update appends a progress report. The work item's progress follows its most
recent report by date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if u.DateID, err = dateFlag(cmd, "date", a.today()); err != nil {
				return err
			}
			u.WorkID = args[0]
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.AddWorkUpdate(ctx, u)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() {
				fmt.Fprintf(out, "Recorded update %s: %s%% on %s\n", saved.UpdateID, num(saved.ProgressPercent), date(saved.DateID))
			})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&u.ProgressPercent, "progress", 0, "progress percent")
	f.StringVar(&u.Narrative, "text", "", "what happened")
	f.StringVar(&u.Blockers, "blockers", "", "what is in the way")
	f.BoolVar(&u.DecisionNeeded, "decision-needed", false, "flag that a decision is needed")
	f.String("date", "", "update date (default: today)")
	return cmd
}

func (a *app) workUpdatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "updates <work-id>",
		Short: "List a work item's progress reports, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			updates, err := svc.WorkUpdates(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, updates, func() {
				rows := make([][]string, len(updates))
				for i, u := range updates {
					rows[i] = []string{date(u.DateID), num(u.ProgressPercent) + "%", u.Narrative, u.Blockers,
						strconv.FormatBool(u.DecisionNeeded)}
				}
				printTable(out, []string{"date", "progress", "update", "blockers", "decision needed"}, rows)
			})
		},
	}
}
