// Package sensorboard provides an embeddable live dashboard for a single
// sampled sensor.
//
// SensorBoard reads a [Sensor] on a fixed interval, keeps the most recent
// readings in a fixed-size ring buffer, and serves them to any number of
// concurrent observers. Every new observer first receives the full retained
// history and then one update per sample.
//
// # Quick Start
//
// Sample a synthetic source and serve the dashboard with graceful shutdown:
//
//	sensor, _ := sensorboard.NewSyntheticSensor(90, 110)
//	sb, _ := sensorboard.New(sensorboard.WithSensor(sensor))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	sb.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// SensorBoard uses the functional options pattern for configuration:
//
//	sb, err := sensorboard.New(
//	    sensorboard.WithSensor(sensor),
//	    sensorboard.WithSampleInterval(100 * time.Millisecond),
//	    sensorboard.WithCapacity(100),
//	    sensorboard.WithPort(9090),
//	    sensorboard.WithMQTT(sensorboard.MQTTConfig{Broker: "broker.local:1883", Topic: "garage/distance"}),
//	)
//
// # Wire Format
//
// Observers receive JSON messages of two kinds:
//
//	{"event":"data","data":[98.2,101.7, ... ]}   // full history, oldest first
//	{"event":"update","data":103.4}              // one new sample
//
// The history message always has Capacity entries. Slots that have not yet
// received a sample hold the placeholder value (0 unless configured).
//
// # Architecture
//
// SensorBoard consists of several internal packages (under internal/):
//
//   - internal/store: Ring buffer of recent samples
//   - internal/broadcast: Observer registry delivering history and updates
//   - internal/sampler: Periodic sensor reader
//   - internal/server: HTTP server with pull, SSE and WebSocket endpoints
//   - internal/mqttsink: Observer that forwards messages to an MQTT broker
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package sensorboard
