package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the warehouse contents with the demo dataset",
		Long: `Seed loads four demo departments (MDS, SGS, BMS, IT), their people and KPIs,
90 days of KPI readings ending today, a handful of work items and the demo
logins admin, executive, mds_head, sgs_head, bms_head, it_head and mds_staff,
all with the password demo123. Master data, facts and users are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			stats, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, stats, func() {
				printTable(out, []string{"departments", "persons", "kpis", "kpi facts", "work items", "users", "dates added"},
					[][]string{{
						strconv.Itoa(stats.Departments), strconv.Itoa(stats.Persons), strconv.Itoa(stats.KPIs),
						strconv.Itoa(stats.Facts), strconv.Itoa(stats.WorkItems), strconv.Itoa(stats.Users),
						strconv.Itoa(stats.Dates),
					}})
			})
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every row in the warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return usageError{errors.New("reset deletes all data; pass --yes to confirm")}
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Warehouse reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage logins",
	}
	cmd.AddCommand(a.userAddCmd(), a.userListCmd())
	return cmd
}

func (a *app) userAddCmd() *cobra.Command {
	var (
		u        types.User
		role     string
		password string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create or replace a login",
		Long: `Add creates a login, or replaces an existing one with the same username.

Roles: Admin and Executive see every department; DeptHead and Staff are
limited to --dept.

WARNING: passwords are stored as unsalted SHA-256 digests. This is not a
secure password store; do not reuse passwords from other systems.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := types.ParseRole(role)
			if err != nil {
				return usageError{err}
			}
			u.Username, u.Role, u.Enabled = args[0], r, !disabled
			if password == "" {
				return usageError{errors.New("--new-password is required")}
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			saved, err := svc.AddUser(ctx, u, password)
			if err != nil {
				return err
			}
			saved.PasswordHash = ""
			out := cmd.OutOrStdout()
			return a.emit(out, saved, func() {
				fmt.Fprintf(out, "Saved user %s (%s)\n", saved.Username, saved.Role)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&role, "role", string(types.RoleStaff), "Admin, Executive, DeptHead or Staff")
	f.StringVar(&u.DeptID, "dept", "", "department for DeptHead and Staff")
	f.StringVar(&u.PersonID, "person", "", "person id the login belongs to")
	f.StringVar(&password, "new-password", "", "the login's password")
	f.BoolVar(&disabled, "disabled", false, "create the login disabled")
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List logins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			users, err := svc.Users(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, users, func() {
				rows := make([][]string, len(users))
				for i, u := range users {
					rows[i] = []string{u.Username, string(u.Role), u.DeptID, u.PersonID, strconv.FormatBool(u.Enabled)}
				}
				printTable(out, []string{"username", "role", "dept", "person", "enabled"}, rows)
			})
		},
	}
}
