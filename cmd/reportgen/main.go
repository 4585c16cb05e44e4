// reportgen builds the quarterly bonus workbook from a budget master export
// and a time-entry export.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/config"
	"github.com/garyjia/bonus-report/internal/repository"
	"github.com/garyjia/bonus-report/internal/report"
	"github.com/garyjia/bonus-report/internal/runner"
	"github.com/garyjia/bonus-report/internal/storage"
	"github.com/garyjia/bonus-report/internal/worker"
	"github.com/garyjia/bonus-report/pkg/database"
	"github.com/garyjia/bonus-report/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath      string
	budgetPath      string
	timesPath       string
	quarter         string
	outDir          string
	role            string
	projects        []string
	employees       []string
	excludeInternal bool
	listRuns        int
	quiet           bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f flags

	flagSet := pflag.NewFlagSet("reportgen", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&f.configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&f.budgetPath, "budget", "", "budget master export (tab separated)")
	flagSet.StringVar(&f.timesPath, "times", "", "time-entry export (XML)")
	flagSet.StringVar(&f.quarter, "quarter", "", "quarter to report, e.g. 2025Q3 or Q3-2025 (default: latest in data)")
	flagSet.StringVar(&f.outDir, "out", "", "directory the workbook is published to")
	flagSet.StringVar(&f.role, "role", "", "default employee role (PL, SV, TZ, PA, -)")
	flagSet.StringSliceVar(&f.projects, "project", nil, "only include projects with this prefix (repeatable)")
	flagSet.StringSliceVar(&f.employees, "employee", nil, "only include this employee (repeatable)")
	flagSet.BoolVar(&f.excludeInternal, "exclude-internal", false, "leave out internal projects")
	flagSet.IntVar(&f.listRuns, "list-runs", 0, "print the last N recorded runs and exit")
	flagSet.BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, flagSet)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	var runs *repository.RunRepository
	var history *repository.HistoryRepository
	if cfg.Database.Enabled {
		db, err := database.New(database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.NewMigrator(db, logger).Migrate(cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		runs = repository.NewRunRepository(db.DB, logger)
		history = repository.NewHistoryRepository(db.DB, logger)
	}

	if f.listRuns > 0 {
		if runs == nil {
			return fmt.Errorf("--list-runs needs database.enabled in the configuration")
		}
		return printRuns(stdout, runs, f.listRuns)
	}

	if f.budgetPath == "" || f.timesPath == "" {
		return fmt.Errorf("--budget and --times are required")
	}

	r := runner.NewRunner(runner.Config{
		QueueSize:       cfg.Runner.QueueSize,
		OutputPattern:   cfg.Runner.OutputPattern,
		MetricsTextfile: cfg.Metrics.TextfilePath,
	},
		storage.NewFolderManager(cfg.Storage.WorkDir, logger),
		storage.NewLocalFileStorage(cfg.Storage.OutputDir, logger),
		runner.NewMetrics(),
		logger)
	if runs != nil {
		r.WithHistory(runs, history)
	}

	workers := worker.NewManager(logger)
	workers.Register(r)
	if err := workers.StartAll(ctx); err != nil {
		return err
	}
	defer workers.StopAll()

	job := runner.Job{
		Inputs: report.Inputs{
			BudgetPath: f.budgetPath,
			TimesPath:  f.timesPath,
		},
		Options: cfg.ReportOptions(),
	}
	if !f.quiet {
		job.Progress = func(percent int, message string) {
			fmt.Fprintf(stderr, "[%3d%%] %s\n", percent, message)
		}
	}

	res, err := r.Run(ctx, job)
	if err != nil {
		logger.Error("Report run failed", zap.String("run_id", res.RunID), zap.Error(err))
		return err
	}

	fmt.Fprintf(stdout, "%s\n", res.OutputPath)
	if res.Unresolved > 0 {
		fmt.Fprintf(stderr, "%d Zeilen ohne Budgetzuordnung: %q markiert\n", res.Unresolved, report.ManualInputMarker)
	}
	return nil
}

// applyFlags lets explicitly given flags win over the configuration
func applyFlags(cfg *config.Config, f flags, flagSet *pflag.FlagSet) {
	if flagSet.Changed("quarter") {
		cfg.Report.Quarter = f.quarter
	}
	if flagSet.Changed("out") {
		cfg.Storage.OutputDir = f.outDir
	}
	if flagSet.Changed("role") {
		cfg.Report.DefaultRole = f.role
	}
	if flagSet.Changed("project") {
		cfg.Report.Filter.Projects = f.projects
	}
	if flagSet.Changed("employee") {
		cfg.Report.Filter.Employees = f.employees
	}
	if flagSet.Changed("exclude-internal") {
		cfg.Report.Filter.ExcludeInternal = f.excludeInternal
	}
}

func printRuns(w io.Writer, runs *repository.RunRepository, limit int) error {
	recent, err := runs.ListRecent(limit)
	if err != nil {
		return err
	}
	for _, run := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", run.RunID, run.Quarter, run.Status, run.OutputPath)
	}
	return nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `reportgen builds the quarterly bonus workbook.

Usage:
  reportgen --budget budget.csv --times zeiten.xml [--quarter 2025Q3] [--out reports]

Flags:
%s`, flagSet.FlagUsages())
}
