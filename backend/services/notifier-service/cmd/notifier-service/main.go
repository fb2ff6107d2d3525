// Command notifier-service relays charging-station status changes to a Teams channel.
//
// Usage:
//
//	notifier-service serve
//	notifier-service poll
//	notifier-service reset
//	notifier-service seed --file stations.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"avacharge/backend/libs/logging"
	"avacharge/backend/services/notifier-service/internal/app"
	"avacharge/backend/services/notifier-service/internal/config"
	redisstore "avacharge/backend/services/notifier-service/internal/redis"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath string
	root := &cobra.Command{
		Use:           "notifier-service",
		Short:         "Charging station notification relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")

	serve := serveCmd(&configPath)
	root.AddCommand(serve, pollCmd(&configPath), resetCmd(&configPath), seedCmd(&configPath))
	root.RunE = serve.RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads config, builds the application and hands it to fn.
func withApp(configPath *string, fn func(ctx context.Context, a *app.App, logger *zap.Logger) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("notifier-service")
	if err != nil {
		return err
	}
	defer logger.Sync() // best-effort flush

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return err
	}
	defer application.Close()

	return fn(ctx, application, logger)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP endpoints and run scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("application stopped with error", zap.Error(err))
					return err
				}
				return nil
			})
		},
	}
}

func pollCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one poll pass and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				result, err := a.Notifier().Poll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
				return nil
			})
		},
	}
}

func resetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset every unbooked station to Free",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				result, err := a.Notifier().ResetDaily(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "reset: %d, skipped: %d, failed: %d\n",
					result.Reset, len(result.Skipped), result.Failed)
				return err
			})
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load station documents from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			records, err := redisstore.ParseSeed(data)
			if err != nil {
				return err
			}

			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger("notifier-service")
			if err != nil {
				return err
			}
			defer logger.Sync()

			stations, closeFn, err := app.ConnectStations(cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := stations.Seed(cmd.Context(), records); err != nil {
				return err
			}
			logger.Info("stations seeded", zap.Int("count", len(records)), zap.String("file", file))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "stations.yaml", "YAML file with a top-level stations list")
	return cmd
}
