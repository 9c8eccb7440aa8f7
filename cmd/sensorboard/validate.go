package main

import (
	"fmt"
	"time"

	"github.com/jpalmerr/sensorboard/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a SensorBoard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  sensorboard validate -c config.yaml
  sensorboard validate --config /etc/sensorboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// building options also constructs the sensor and alarm
	if _, err := config.BuildOptions(cfg, nil); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	window := cfg.SampleInterval.Duration() * time.Duration(cfg.Capacity)

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:            %d\n", cfg.Port)
	fmt.Printf("  Sample interval: %s\n", cfg.SampleInterval.Duration())
	fmt.Printf("  Capacity:        %d samples (%s window)\n", cfg.Capacity, window)
	fmt.Printf("  Sensor:          %s\n", cfg.Sensor.Type)
	if cfg.MQTT != nil {
		fmt.Printf("  MQTT:            %s -> %s\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	} else {
		fmt.Printf("  MQTT:            disabled\n")
	}

	return nil
}
