package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/platform/db"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "careflow-server",
		Short:        "Care flow modelling API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(stepsCmd())
	root.AddCommand(flowsCmd())
	root.AddCommand(generateCmd())
	return root
}

// withApp loads the config, wires the services and runs fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := buildApp(ctx, cfg, newLogger(cfg.Env))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(runServer)
		},
	}
}

func runServer(_ context.Context, a *app) error {
	e := a.routes()
	logger := a.logger

	go func() {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Str("storage", a.cfg.StorageBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(stdout, "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(stdout, statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UsesPostgres() {
		return fmt.Errorf("migrations require STORAGE_BACKEND=%s", config.BackendPostgres)
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, dir))
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func stepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Manage the step catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the default step library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.steps.SeedDefaults(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Seeded %d step(s), skipped %d existing.\n", len(res.Created), res.Skipped)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Synchronize the step catalog with the steps used in flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.sync.SyncFromFlows(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, res.Message)
				for _, f := range res.Failed {
					fmt.Fprintf(stdout, "  failed: %s (%s): %s\n", f.Name, f.Type, f.Error)
				}
				return nil
			})
		},
	})
	return cmd
}

func flowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Inspect stored flows",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify-legacy",
		Short: "Report flows whose embedded legacy graph disagrees with their nodes and edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				mismatches, err := a.flows.VerifyLegacyGraphs(ctx)
				if err != nil {
					return err
				}
				if len(mismatches) == 0 {
					fmt.Fprintln(stdout, "All legacy graphs are consistent.")
					return nil
				}
				for _, m := range mismatches {
					label := "drift"
					if m.LegacyOnly {
						label = "legacy-only"
					}
					fmt.Fprintf(stdout, "%s %q [%s]\n", m.FlowID, m.Name, label)
					for _, d := range m.Differences {
						fmt.Fprintf(stdout, "  - %s\n", d)
					}
				}
				return fmt.Errorf("%d flow(s) need attention", len(mismatches))
			})
		},
	})
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate flows from clinical activity",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "comprehensive",
		Short: "Generate flows for the most frequent diagnoses, procedures and referrals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				report, err := a.generator.GenerateComprehensiveFlows(ctx)
				if err != nil {
					return err
				}
				for _, f := range report.Flows {
					fmt.Fprintf(stdout, "%-18s %-50s freq=%-5d cost=%.2f duration=%d\n",
						f.Type, f.Name, f.Frequency, f.EstimatedCost, f.EstimatedDuration)
				}
				fmt.Fprintf(stdout, "Created %d flow(s), %d failed.\n", report.TotalCreated, report.TotalFailed)
				return nil
			})
		},
	})
	return cmd
}
