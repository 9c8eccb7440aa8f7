// Package main is the entry point for the sensorboard CLI.
//
// SensorBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	sensorboard serve -c config.yaml    # Start sampling and the dashboard
//	sensorboard validate -c config.yaml # Validate configuration
//	sensorboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "sensorboard",
	Short: "A live dashboard for a sampled sensor",
	Long: `SensorBoard samples a sensor at a fixed rate and serves a live dashboard.

The most recent samples are kept in a ring buffer. Browsers receive the
full history on connect and then one update per sample over WebSocket or
Server-Sent Events. Messages can also be forwarded to an MQTT broker.

Quick start:
  1. Create a config file (sensorboard.yaml)
  2. Run: sensorboard serve -c sensorboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  sample_interval: 100ms
  capacity: 100
  sensor:
    type: synthetic
    min: 90
    max: 110`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this sensorboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sensorboard %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
