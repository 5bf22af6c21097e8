package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fare-tracker/config"
	"fare-tracker/scraper/southwest"
	"fare-tracker/services"
	"fare-tracker/storage"
	"fare-tracker/utils"
)

var (
	workRoot string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "fare-tracker <trip.json5>...",
	Short:         "Checks one-way fares for each trip config and logs new entries and new lows.",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

func init() {
	rootCmd.Flags().StringVar(&workRoot, "work-root", "", "directory holding one working dir per trip (overrides FARE_WORK_ROOT)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, tripPaths []string) error {
	cfg := config.Load()
	if workRoot != "" {
		cfg.WorkRoot = workRoot
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := utils.NewLoggerTo(os.Stderr, cfg.LogLevel)
	logger.Info("=== Fare Tracker starting ===")
	logger.Info("Config: site %s | work root %s | retries %d | pacing %dms",
		cfg.BaseURL, cfg.WorkRoot, cfg.MaxRetries, cfg.RateLimitMs)

	metrics := services.NewMetrics()

	var mirror storage.ObservationWriter
	if cfg.PostgresEnabled() {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Continuing with the CSV log only")
		} else {
			defer pgWriter.Close()
			mirror = pgWriter
		}
	}

	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.SMTPServer != "" {
		notifier = services.NewEmailNotifier(services.SMTPConfig{
			Server:   cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			To:       cfg.NotifyTo,
		})
	}

	driver, err := southwest.New(cfg, logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	checker := services.NewChecker(cfg, driver, metrics, logger)
	checker.Mirror = mirror
	checker.Notifier = notifier
	printer := services.NewReportPrinter(os.Stdout)

	failed := 0
	for _, path := range tripPaths {
		trip, err := config.LoadTrip(path)
		if err != nil {
			logger.Error("Skipping %s: %v", path, err)
			failed++
			continue
		}

		report, err := checker.Run(ctx, trip)
		if report != nil {
			printer.Print(report)
		}
		if err != nil {
			logger.Error("Trip %s failed: %v", trip.Name, err)
			failed++
			if ctx.Err() != nil {
				break
			}
		}
	}

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("Failed to write metrics to %s: %v", cfg.MetricsTextfile, err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d trips failed", failed, len(tripPaths))
	}
	logger.Info("=== Done: %d trips checked ===", len(tripPaths))
	return nil
}
