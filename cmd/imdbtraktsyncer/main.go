package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
	"github.com/RileyXX/imdb-trakt-syncer/internal/controllers"
	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/resolver"
	"github.com/RileyXX/imdb-trakt-syncer/internal/scheduler"
	"github.com/RileyXX/imdb-trakt-syncer/internal/services/imdb"
	"github.com/RileyXX/imdb-trakt-syncer/internal/services/trakt"
	"github.com/RileyXX/imdb-trakt-syncer/internal/utils"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var schedule string

	root := &cobra.Command{
		Use:           "imdbtraktsyncer",
		Short:         "Synchronize ratings, watchlist, reviews and watch history between IMDB and Trakt",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), schedule)
		},
	}
	root.Flags().StringVar(&schedule, "schedule", "", "cron expression for repeated runs (default: run once and exit)")

	root.AddCommand(newAuthCommand(), newHistoryCommand(), newClearHistoryCommand(), newVersionCommand())
	return root
}

func runSync(ctx context.Context, schedule string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting IMDB-Trakt syncer")

	settingsStore := config.NewStore(cfg.SettingsFile)
	settings, err := settingsStore.Load()
	if err != nil {
		return err
	}
	if !settings.HasCredentials() {
		if err := settingsStore.Save(settings); err != nil {
			return err
		}
		return fmt.Errorf("missing credentials, fill in %s and run again", cfg.SettingsFile)
	}

	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	traktClient, err := trakt.NewClient(cfg, settingsStore, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Trakt client: %w", err)
	}
	if _, err := traktClient.GetToken(); err != nil {
		logger.Info("Trakt authentication required")
		if err := traktClient.Authenticate(ctx); err != nil {
			return fmt.Errorf("failed to authenticate with Trakt: %w", err)
		}
	}

	driver, err := imdb.NewDriver(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start IMDB browser session: %w", err)
	}
	defer driver.Close()

	if err := driver.SignIn(ctx, settings.IMDBUsername, settings.IMDBPassword); err != nil {
		return fmt.Errorf("failed to sign in to IMDB: %w", err)
	}

	lookup := imdb.NewLookup(cfg, logger)
	res := resolver.NewResolver(lookup, logger)
	exec := executor.NewExecutor(traktClient, driver, os.Stdout, logger)
	syncCtrl := controllers.NewSyncController(cfg, traktClient, driver, res, exec, settingsStore, db, os.Stdout, logger)

	if schedule == "" {
		return syncCtrl.Run(ctx)
	}

	sched := scheduler.NewScheduler(syncCtrl, schedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case <-ctx.Done():
	}
	return nil
}

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the Trakt device authentication flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

			traktClient, err := trakt.NewClient(cfg, config.NewStore(cfg.SettingsFile), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize Trakt client: %w", err)
			}
			return traktClient.Authenticate(cmd.Context())
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			db, err := models.NewDatabase(cfg.DatabaseFile)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			runs, err := db.RecentRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to read run history: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No sync runs recorded yet")
				return nil
			}

			if last, err := db.LastSuccessfulRun(); err == nil {
				fmt.Printf("Last successful run: %s\n\n", last.FinishedAt.Local().Format("2006-01-02 15:04:05"))
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Started", "Duration", "Attempted", "Failed", "Error"})
			for _, run := range runs {
				attempted, failed := 0, 0
				for _, result := range run.Results {
					attempted += result.Attempted
					failed += result.Failed
				}
				t.AppendRow(table.Row{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
					attempted,
					failed,
					run.Error,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func newClearHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-history",
		Short: "Delete the stored run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := os.Remove(cfg.DatabaseFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove run history: %w", err)
			}
			fmt.Println("Run history cleared")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
