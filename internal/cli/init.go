package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Days around today that init puts in the date dimension.
const (
	initDaysBack    = 365
	initDaysForward = 90
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the warehouse",
		Long: `Init creates the configuration directory with a default config.yaml (including
a freshly generated token signing secret), creates the data directory and the
warehouse schema, and fills the date dimension from a year ago to 90 days
ahead. Running it again keeps the existing config and data.`,
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	if err := a.layout.Ensure(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	wrote, err := writeConfigIfMissing(a.layout.ConfigFile(), a.cfg)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	ctx, svc, err := a.service(cmd)
	if err != nil {
		return err
	}
	today := a.now()
	added, err := svc.EnsureDates(ctx, today.AddDate(0, 0, -initDaysBack), today.AddDate(0, 0, initDaysForward))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return a.emit(out, map[string]any{
		"config_file":    a.layout.ConfigFile(),
		"config_created": wrote,
		"data_dir":       a.layout.DataDir,
		"dates_created":  added,
	}, func() {
		if wrote {
			fmt.Fprintf(out, "Wrote %s\n", a.layout.ConfigFile())
		}
		fmt.Fprintf(out, "Warehouse ready in %s (%d dates added)\n", a.layout.DataDir, added)
	})
}
