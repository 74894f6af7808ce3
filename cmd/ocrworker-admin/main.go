package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pageforge/ocrworker/config"
	"github.com/pageforge/ocrworker/internal/bootstrap"
	"github.com/pageforge/ocrworker/internal/data"
	"github.com/pageforge/ocrworker/internal/devseed"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development jobs",
			run:         runDBSeed,
		},
		"stats": {
			name:        "stats",
			description: "Show job counts per lifecycle state",
			run:         runStats,
		},
		"list-failed": {
			name:        "list-failed",
			description: "List recently failed jobs with their stored errors",
			run:         runListFailed,
		},
		"requeue": {
			name:        "requeue",
			description: "Return a failed job to pending for re-processing",
			run:         runRequeue,
		},
		"reclaim-stale": {
			name:        "reclaim-stale",
			description: "Return jobs held by dead workers to pending",
			run:         runReclaimStale,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: ocrworker-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

type dbSeedOptions struct {
	Timeout     time.Duration
	AllowRemote bool
}

type listFailedOptions struct {
	Limit int
}

type reclaimOptions struct {
	OlderThan time.Duration
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(args)
	if err != nil {
		return err
	}

	if guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "seed development data on the configured database"); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}

		cmdCtx.Logger.Info("seeding development data")
		if seedErr := devseed.Run(ctx, devseed.NewServices(db), cmdCtx.Logger); seedErr != nil {
			return fmt.Errorf("seed data: %w", seedErr)
		}

		cmdCtx.Logger.Info("database seeding completed successfully")
		return nil
	})
}

func runStats(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})

		stats, err := repo.Stats(ctx)
		if err != nil {
			return fmt.Errorf("job stats: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tCOUNT")
		fmt.Fprintf(w, "pending\t%d\n", stats.Pending)
		fmt.Fprintf(w, "claimed\t%d\n", stats.Claimed)
		fmt.Fprintf(w, "processing\t%d\n", stats.Processing)
		fmt.Fprintf(w, "succeeded\t%d\n", stats.Succeeded)
		fmt.Fprintf(w, "failed\t%d\n", stats.Failed)
		return w.Flush()
	})
}

func runListFailed(cmdCtx *commandContext, args []string) error {
	opts, err := parseListFailedFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})

		jobs, err := repo.ListFailed(ctx, opts.Limit)
		if err != nil {
			return fmt.Errorf("list failed jobs: %w", err)
		}
		if len(jobs) == 0 {
			return writeln(os.Stdout, "No failed jobs.")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tDOCUMENT\tATTEMPTS\tFAILED AT\tERROR")
		for _, j := range jobs {
			failedAt := ""
			if j.CompletedAt != nil {
				failedAt = j.CompletedAt.UTC().Format(time.RFC3339)
			}
			lastError := ""
			if j.LastError != nil {
				lastError = *j.LastError
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				j.ID, j.OwnerID, j.DocumentKey, j.AttemptCount, failedAt, lastError)
		}
		return w.Flush()
	})
}

func runRequeue(cmdCtx *commandContext, args []string) error {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: ocrworker-admin requeue <job-id>")
	}
	jobID := strings.TrimSpace(args[0])

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})

		ok, err := repo.Requeue(ctx, jobID)
		if err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
		if !ok {
			return fmt.Errorf("job %s was not requeued; it must exist and be in failed status", jobID)
		}

		cmdCtx.Logger.Info("job requeued", "job_id", jobID)
		return nil
	})
}

func runReclaimStale(cmdCtx *commandContext, args []string) error {
	opts, err := parseReclaimFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})

		reclaimed, err := repo.ReclaimStale(ctx, opts.OlderThan)
		if err != nil {
			return fmt.Errorf("reclaim stale jobs: %w", err)
		}

		cmdCtx.Logger.Info("stale jobs reclaimed",
			"count", reclaimed, "older_than", opts.OlderThan.String())
		return nil
	})
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBSeedFlags(args []string) (dbSeedOptions, error) {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbSeedOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for seeding to complete")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false,
		"Permit running against database hosts that do not look local")

	if err := fs.Parse(args); err != nil {
		return dbSeedOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbSeedOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseListFailedFlags(args []string) (listFailedOptions, error) {
	fs := flag.NewFlagSet("list-failed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listFailedOptions{Limit: 50}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of failed jobs to list")

	if err := fs.Parse(args); err != nil {
		return listFailedOptions{}, err
	}
	if opts.Limit <= 0 {
		return listFailedOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func parseReclaimFlags(args []string) (reclaimOptions, error) {
	fs := flag.NewFlagSet("reclaim-stale", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := reclaimOptions{OlderThan: 10 * time.Minute}
	fs.DurationVar(&opts.OlderThan, "older-than", 10*time.Minute,
		"Reclaim jobs whose claim is older than this duration")

	if err := fs.Parse(args); err != nil {
		return reclaimOptions{}, err
	}
	if opts.OlderThan < time.Minute {
		return reclaimOptions{}, errors.New("--older-than must be at least one minute")
	}
	return opts, nil
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func guardRemoteHost(cmdCtx *commandContext, allow bool, action string) error {
	if !isLikelyRemoteHost(cmdCtx.Config.Postgres.Host) {
		return nil
	}
	if !allow {
		return fmt.Errorf(
			"refusing to %s against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			action, cmdCtx.Config.Postgres.Host,
		)
	}
	return nil
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if h == "localhost" || h == "127.0.0.1" || h == "::1" {
		return false
	}
	if strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeln(w io.Writer, args ...any) error {
	if _, err := fmt.Fprintln(w, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
