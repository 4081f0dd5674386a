package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/internal/watch"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		debounce time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Import files dropped into a folder",
		Long: `Watch imports every CSV, XLSX or JSON file that lands in the drop folder
(default: the inbox under the data directory). The file name picks the table
and mode: fact_kpi_data.csv appends to fact_kpi_data, dim_kpi.replace.xlsx replaces
dim_kpi. Imported files move to processed/, rejected ones to failed/ next to
an .error.txt explaining why.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.layout.DropDir()
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w, err := watch.New(dir, svc,
				watch.WithDebounce(debounce),
				watch.WithLogger(a.log),
				watch.OnResult(func(r watch.Result) { printWatchResult(out, r) }),
			)
			if err != nil {
				return err
			}
			if once {
				_, err := w.Scan(ctx)
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", dir)
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "how long a file must stay unchanged before import")
	cmd.Flags().BoolVar(&once, "once", false, "import the files already there and exit")
	return cmd
}

func printWatchResult(w io.Writer, r watch.Result) {
	name := filepath.Base(r.Path)
	if r.Err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", styles.bad.Render("failed"), name, r.Err)
		return
	}
	fmt.Fprintf(w, "%s %s: %d row(s) into %s (%s)\n", styles.ok.Render("imported"), name, r.Rows, r.Target.Table, r.Target.Mode)
}
