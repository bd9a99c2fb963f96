package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/session"
	"expensetracker/internal/storage"
)

var version = "dev"

// app holds what the subcommands share. It is filled in by PersistentPreRunE.
type app struct {
	profile  string
	logLevel string

	cfg      *config.Config
	logger   *log.Logger
	repo     *storage.SQLiteRepository
	backend  *api.Client
	events   *amqp.Client
	sessions *services.SessionService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "expensectl",
		Short:             "Expense tracker from the terminal",
		Long:              "expensectl talks to the expense tracker backend: dashboards, goals, deals, charts and spreadsheet exports.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	root.PersistentFlags().StringVar(&a.profile, "profile", "default", "stored session to use")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to warn")

	root.AddCommand(loginCmd(a))
	root.AddCommand(logoutCmd(a))
	root.AddCommand(dashboardCmd(a))
	root.AddCommand(dealsCmd(a))
	root.AddCommand(goalsCmd(a))
	root.AddCommand(transactionsCmd(a))
	root.AddCommand(categoriesCmd(a))
	root.AddCommand(profileCmd(a))
	root.AddCommand(chartCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(versionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return nil
	}
	if p := cmd.Parent(); p != nil && p.Name() == "completion" {
		return nil
	}
	level := a.logLevel
	if level == "" {
		level = "warn"
	}
	a.logger = cli.SetupLogger(level, cmd.ErrOrStderr()).WithComponent(log.ComponentCLI)

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.repo, err = cli.OpenStorage(cfg, a.logger); err != nil {
		return err
	}
	if a.backend, err = cli.NewAPIClient(cfg, a.logger); err != nil {
		return err
	}
	if a.events, err = cli.NewEventClient(cfg, a.logger); err != nil {
		a.logger.Warn("Events disabled", log.FieldError, err)
	}
	a.sessions = services.NewSessionService(a.backend, a.repo, cfg.TokenRefreshWindow, a.logger)
	return nil
}

func (a *app) close() {
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// session returns the stored session of the active profile, renewed if needed.
func (a *app) session(ctx context.Context) (session.Session, error) {
	s, err := a.sessions.Current(ctx, a.profile)
	switch {
	case errors.Is(err, services.ErrNotLoggedIn):
		return s, fmt.Errorf("profile %q is not logged in, run: expensectl login", a.profile)
	case errors.Is(err, services.ErrSessionExpired):
		return s, fmt.Errorf("session of profile %q expired, run: expensectl login", a.profile)
	}
	return s, err
}

func (a *app) dashboards() *services.DashboardService {
	categories := cache.NewLRUCache[[]core.Category](4, a.cfg.CategoryCacheTTL)
	return services.NewDashboardService(a.backend, cli.Publisher(a.events), categories, a.logger)
}

func (a *app) deals() *services.DealService {
	return services.NewDealService(a.backend, cli.Publisher(a.events), a.logger)
}

func (a *app) goals() *services.GoalService {
	return services.NewGoalService(a.backend, a.logger)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "expensectl", version)
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	cli.LoadEnvFile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
