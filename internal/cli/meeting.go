package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func (a *app) meetingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Record meetings",
	}
	var m types.Meeting
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if m.DateID, err = dateFlag(cmd, "date", a.today()); err != nil {
				return err
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.AddMeeting(ctx, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() { fmt.Fprintf(out, "Recorded meeting %s\n", saved.MeetingID) })
		},
	}
	f := add.Flags()
	f.StringVar(&m.DeptID, "dept", "", "department")
	f.StringVar(&m.Title, "title", "", "title")
	f.StringVar(&m.MeetingType, "type", "", "free-text meeting type")
	f.StringVar(&m.OrganizerPersonID, "organizer", "", "organizer person id")
	f.StringVar(&m.Minutes, "minutes", "", "minutes")
	f.String("date", "", "meeting date (default: today)")
	cmd.AddCommand(add)
	return cmd
}

func (a *app) decisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Record meeting decisions",
	}
	var d types.Decision
	add := &cobra.Command{
		Use:   "add <meeting-id>",
		Short: "Record a decision taken in a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.MeetingID = args[0]
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.AddDecision(ctx, d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() { fmt.Fprintf(out, "Recorded decision %s\n", saved.DecisionID) })
		},
	}
	f := add.Flags()
	f.StringVar(&d.DeptID, "dept", "", "department")
	f.StringVar(&d.DecisionText, "text", "", "the decision")
	f.StringVar(&d.DecidedBy, "by", "", "who decided")
	cmd.AddCommand(add)
	return cmd
}

func (a *app) actionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Track meeting follow-ups and promote them to work items",
	}
	cmd.AddCommand(a.actionAddCmd(), a.actionListCmd(), a.actionPromoteCmd())
	return cmd
}

func (a *app) actionAddCmd() *cobra.Command {
	var (
		act    types.ActionItem
		status string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a follow-up action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if act.DueDateID, err = dateFlag(cmd, "due", 0); err != nil {
				return err
			}
			act.Status = types.WorkStatus(status)
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.AddAction(ctx, act)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() { fmt.Fprintf(out, "Recorded action %s\n", saved.ActionID) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&act.DeptID, "dept", "", "department")
	f.StringVar(&act.Title, "title", "", "title")
	f.StringVar(&act.MeetingID, "meeting", "", "meeting the action came from")
	f.StringVar(&act.DecisionID, "decision", "", "decision the action implements")
	f.StringVar(&act.OwnerPersonID, "owner", "", "owner person id")
	f.StringVar(&status, "status", "", "status (default Open)")
	f.Float64Var(&act.ProgressPercent, "progress", 0, "progress percent")
	f.String("due", "", "due date")
	return cmd
}

func (a *app) actionListCmd() *cobra.Command {
	var dept string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List follow-up actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			actions, err := svc.Actions(ctx, dept)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, actions, func() {
				rows := make([][]string, len(actions))
				for i, act := range actions {
					rows[i] = []string{act.ActionID, act.DeptID, act.Title, string(act.Status),
						date(act.DueDateID), act.LinkedWorkID}
				}
				printTable(out, []string{"id", "dept", "title", "status", "due", "work item"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&dept, "dept", "", "only this department")
	return cmd
}

func (a *app) actionPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <action-id>",
		Short: "Turn an action into a tracked work item",
		Long:  `Promote creates a Planned work item from the action and links the two. An action can be promoted once.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			w, err := svc.PromoteAction(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, w, func() { fmt.Fprintf(out, "Promoted %s to work item %s\n", args[0], w.WorkID) })
		},
	}
}
