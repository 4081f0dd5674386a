// Package cli implements the insighthub command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/internal/paths"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	user      string
	password  string
}

// app is the state of one CLI invocation.
type app struct {
	flags  rootFlags
	layout paths.Layout
	cfg    types.Config
	log    *logging.Logger
	now    func() time.Time

	store *sqlite.Backend
	svc   *hub.Service
}

func newApp() *app {
	return &app{log: logging.Nop(), now: time.Now}
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, styles.err.Render("Error: "+err.Error()))
	return exitCode(err)
}

// Execute runs the CLI against the process arguments and exits.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// NewRootCmd creates the top-level "insighthub" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "insighthub",
		Short: "Departmental KPI analytics, insights and work tracking",
		Long: `insighthub keeps KPI readings, work items and meeting follow-ups for each
department in a local SQLite warehouse and turns them into plain-language
insights, trends and executive summaries.

Commands run as the local operator (an administrator) unless --user is given,
in which case the user's role and department scope every query.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $"+paths.EnvConfigDir+" or the user config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $"+paths.EnvDataDir+", config.yaml, or ./"+paths.DefaultDataDirName+")")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.user, "user", "", "act as this user instead of the local operator")
	pf.StringVar(&a.flags.password, "password", "", "password for --user (default: $"+envPassword+")")

	root.AddCommand(
		newVersionCmd(),
		a.initCmd(),
		a.seedCmd(),
		a.resetCmd(),
		a.userCmd(),
		a.kpiCmd(),
		a.trendCmd(),
		a.summaryCmd(),
		a.insightsCmd(),
		a.workCmd(),
		a.meetingCmd(),
		a.decisionCmd(),
		a.actionCmd(),
		a.reportCmd(),
		a.workspaceCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.watchCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads configuration. Commands that need the warehouse open it
// through service.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}
	return a.loadConfig(cmd)
}

// service attaches the warehouse on first use and returns the hub service
// with a context carrying the caller's session.
func (a *app) service(cmd *cobra.Command) (context.Context, *hub.Service, error) {
	if a.svc == nil {
		store := sqlite.NewBackend(sqlite.WithLogger(a.log), sqlite.WithClock(a.now))
		if err := store.Attach(a.cfg); err != nil {
			return nil, nil, fmt.Errorf("attach warehouse: %w", err)
		}
		a.store = store
		a.svc = hub.New(store, hub.WithLogger(a.log), hub.WithClock(a.now))
	}
	ctx, err := a.session(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return ctx, a.svc, nil
}

func (a *app) close() error {
	if a.log != nil {
		a.log.Sync()
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Detach()
	a.store, a.svc = nil, nil
	return err
}
