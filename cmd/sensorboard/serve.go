package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/sensorboard"
	"github.com/jpalmerr/sensorboard/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts sampling and the SensorBoard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start sampling and the dashboard server",
	Long: `Start the SensorBoard sampler and dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Read the configured sensor at the sample interval
  - Serve the dashboard UI, /data, /api/sse and /ws on the configured port
  - Forward messages to MQTT if an mqtt section is present

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  sensorboard serve -c config.yaml
  sensorboard serve --config /etc/sensorboard/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer := config.NewLogger(cfg.Log, os.Stderr)
	defer closer.Close()

	logger.Info("config loaded",
		"sensor", cfg.Sensor.Type,
		"capacity", cfg.Capacity,
		"mqtt", cfg.MQTT != nil,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"sample_interval", cfg.SampleInterval.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}

	sb, err := sensorboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create SensorBoard: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- sb.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
