package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/rastion-hub/internal/app"
	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/platform/events"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"github.com/yungbote/rastion-hub/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config and the logger. The caller must Sync the logger.
func bootstrap() (app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, log, nil
}

var rootCmd = &cobra.Command{
	Use:   "rastion-hub",
	Short: "Registry for optimization problems and solvers",
	// Bare invocation serves.
	RunE:         runServe,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize app", "error", err)
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		log.Error("Failed to start app", "error", err)
		return err
	}
	if err := a.Run(ctx); err != nil {
		log.Error("HTTP server stopped", "error", err)
		return err
	}
	log.Info("Shut down cleanly")
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the metadata schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		svc, err := app.OpenDatabase(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", svc.Driver())
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill-categories",
	Short: "Assign inferred categories to artifacts that have none",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		svc, err := app.OpenDatabase(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		category := services.NewCategoryService(svc.DB(), log, repos.NewArtifactRepo(svc.DB(), log))
		n, err := category.Backfill(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backfilled %d artifact(s)\n", n)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print registry events from the Redis channel as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		bus, err := events.NewRedisBus(cmd.Context(), log, cfg.RedisConfig())
		if err != nil {
			return err
		}
		defer bus.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		err = bus.Subscribe(cmd.Context(), func(ev events.Event) {
			_ = enc.Encode(ev)
		})
		if err != nil && cmd.Context().Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(eventsCmd)
}
