package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/sensorboard"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// log each time the door crosses the closed threshold (see sensor.go)
	alarm, err := sensorboard.NewThresholdAlarm(sensorboard.AlarmLess, 20, func(e sensorboard.AlarmEvent) {
		if e.Triggered {
			logger.Warn("door closed", "distance_cm", e.Value)
		} else {
			logger.Info("door opening", "distance_cm", e.Value)
		}
	})
	if err != nil {
		slog.Error("failed to create alarm", "error", err)
		os.Exit(1)
	}

	var count int
	sb, err := sensorboard.New(
		sensorboard.WithSensor(newDoorSensor()),
		sensorboard.WithSampleInterval(100*time.Millisecond),
		sensorboard.WithCapacity(100),
		sensorboard.WithPort(8080),
		sensorboard.WithTitle("Garage Door"),
		sensorboard.WithLogger(logger),
		sensorboard.WithAlarm(alarm),
		sensorboard.WithSampleCallback(func(s sensorboard.Sample) {
			// runs on the sampling goroutine, so no locking needed
			count++
			if count%50 == 0 {
				logger.Info("samples taken", "count", count, "last_cm", s.Value)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create sensorboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  SensorBoard Demo")
	fmt.Println()
	fmt.Println("  Dashboard:  http://localhost:8080")
	fmt.Println("  Snapshot:   http://localhost:8080/data")
	fmt.Println("  WebSocket:  ws://localhost:8080/ws")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sb.Start(ctx); err != nil {
		slog.Error("sensorboard error", "error", err)
		os.Exit(1)
	}
}
