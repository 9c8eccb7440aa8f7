package sensorboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/sensorboard/dashboard"
	"github.com/jpalmerr/sensorboard/internal/broadcast"
	"github.com/jpalmerr/sensorboard/internal/mqttsink"
	"github.com/jpalmerr/sensorboard/internal/sampler"
	"github.com/jpalmerr/sensorboard/internal/server"
	"github.com/jpalmerr/sensorboard/internal/store"
)

const (
	defaultSampleInterval = 100 * time.Millisecond
	defaultCapacity       = 100
	defaultPort           = 8080
)

// Sample is a single stored reading, passed to sample callbacks.
type Sample struct {
	// Value is the sensor reading.
	Value float64

	// At is when the sample was stored.
	At time.Time
}

// History is a snapshot annotated with capacity and fill count.
//
// Samples always has Capacity entries, oldest first. The first
// Capacity-Filled entries are placeholders until the buffer has wrapped.
type History struct {
	Capacity int
	Filled   int
	Samples  []float64
}

// SensorBoard samples a sensor and serves its recent history.
//
// SensorBoard reads the configured [Sensor] at a fixed interval, keeps the
// most recent readings in a fixed-size ring buffer, and serves them to any
// number of observers: a pull endpoint, Server-Sent Events, WebSocket, and
// optionally MQTT. It is created using [New] with functional options and
// started with [SensorBoard.Start].
//
// The typical lifecycle is:
//
//	sensor, _ := sensorboard.NewSyntheticSensor(90, 110)
//	sb, err := sensorboard.New(sensorboard.WithSensor(sensor))
//	if err != nil {
//	    slog.Error("failed to create sensorboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	sb.Start(ctx) // blocks until context cancelled
type SensorBoard struct {
	title           string
	sensor          Sensor
	sampleInterval  time.Duration
	port            int
	logger          *slog.Logger
	sampleCallbacks []func(Sample)
	alarms          []*ThresholdAlarm
	mqtt            *MQTTConfig

	store       *store.SampleStore
	broadcaster *broadcast.Broadcaster
}

// New creates a new [SensorBoard] instance with the given options.
//
// A sensor must be configured via [WithSensor]. Other options have sensible
// defaults:
//   - Sample interval: 100 milliseconds
//   - Capacity: 100 samples
//   - Placeholder: 0
//   - Port: 8080
//
// Returns an error if no sensor is configured or if any option is invalid.
func New(opts ...Option) (*SensorBoard, error) {
	cfg := &sbConfig{
		sampleInterval: defaultSampleInterval,
		capacity:       defaultCapacity,
		port:           defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.sensor == nil {
		return nil, errNoSensor
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewSampleStore(cfg.capacity, cfg.placeholder)
	if err != nil {
		return nil, err
	}

	return &SensorBoard{
		title:           cfg.title,
		sensor:          cfg.sensor,
		sampleInterval:  cfg.sampleInterval,
		port:            cfg.port,
		logger:          logger,
		sampleCallbacks: cfg.sampleCallbacks,
		alarms:          cfg.alarms,
		mqtt:            cfg.mqtt,
		store:           st,
		broadcaster:     broadcast.New(st, logger),
	}, nil
}

// Start begins sampling and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The sensor is read every sample interval and each value is stored and
//     pushed to every live observer
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//   - If MQTT is configured, every message is also published to the broker
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (sb *SensorBoard) Start(ctx context.Context) error {
	sb.logger.Info("sensorboard starting", "capacity", sb.store.Capacity())
	sb.logger.Info("sampling configured", "interval", sb.sampleInterval.String())
	sb.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", sb.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	sink := sb.startMQTT(ctx)

	producer, err := sampler.NewProducer(sb.sensor, sb.broadcaster, sb.sampleInterval, sb.logger)
	if err != nil {
		sb.closeMQTT(sink)
		return fmt.Errorf("failed to create sampler: %w", err)
	}
	producer.OnSample(sb.afterSample)
	producer.Start(ctx)

	// cleanup function ensures the sampler is stopped before sinks close
	cleanup := func() {
		producer.Stop()
		sb.closeMQTT(sink)
	}

	httpServer := server.NewServer(sb.store, sb.broadcaster, sb.port, dashboard.Assets, sb.title, sb.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	sb.logger.Info("sensorboard stopped",
		"samples", producer.Samples(),
		"sensor_errors", producer.Errors(),
	)
	return nil
}

// startMQTT connects and registers the MQTT sink, if configured.
// Connection failures are logged; the device keeps serving HTTP observers.
func (sb *SensorBoard) startMQTT(ctx context.Context) *mqttsink.Sink {
	if sb.mqtt == nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sink, err := mqttsink.Connect(dialCtx, mqttsink.Config{
		Broker:   sb.mqtt.Broker,
		Topic:    sb.mqtt.Topic,
		ClientID: sb.mqtt.ClientID,
		Username: sb.mqtt.Username,
		Password: sb.mqtt.Password,
	}, sb.logger)
	if err != nil {
		sb.logger.Warn("mqtt disabled", "broker", sb.mqtt.Broker, "error", err)
		return nil
	}

	if err := sb.broadcaster.Register(sink); err != nil {
		sb.logger.Warn("mqtt sink rejected history", "error", err)
		sb.closeMQTT(sink)
		return nil
	}

	go func() {
		<-sink.Done()
		// the broadcaster evicts the sink on its next failed send
		if err := sink.Err(); err != nil {
			sb.logger.Warn("mqtt sink stopped", "error", err)
		}
	}()

	return sink
}

func (sb *SensorBoard) closeMQTT(sink *mqttsink.Sink) {
	if sink == nil {
		return
	}
	sb.broadcaster.Deregister(sink.ID())
	if err := sink.Close(); err != nil {
		sb.logger.Debug("mqtt disconnect error", "error", err)
	}
}

// afterSample runs callbacks and alarms on the sampling goroutine.
func (sb *SensorBoard) afterSample(value float64, at time.Time) {
	for _, a := range sb.alarms {
		a.Observe(value, at)
	}

	if len(sb.sampleCallbacks) == 0 {
		return
	}
	sample := Sample{Value: value, At: at}
	for _, cb := range sb.sampleCallbacks {
		invokeCallbackSafe(cb, sample, sb.logger)
	}
}

// Snapshot returns the retained samples, oldest first.
//
// The slice always has [SensorBoard.Capacity] entries; slots that have not
// received a sample hold the placeholder value.
func (sb *SensorBoard) Snapshot() []float64 {
	return sb.store.Snapshot()
}

// History returns the snapshot together with capacity and fill count.
func (sb *SensorBoard) History() History {
	h := sb.store.History()
	return History{Capacity: h.Capacity, Filled: h.Filled, Samples: h.Samples}
}

// Latest returns the most recent sample. ok is false before the first sample.
func (sb *SensorBoard) Latest() (value float64, ok bool) {
	return sb.store.Latest()
}

// Capacity returns the number of retained samples.
func (sb *SensorBoard) Capacity() int {
	return sb.store.Capacity()
}

// Observers returns the number of live observers.
func (sb *SensorBoard) Observers() int {
	return sb.broadcaster.Count()
}

// Port returns the configured HTTP port for the dashboard server.
func (sb *SensorBoard) Port() int {
	return sb.port
}

// SampleInterval returns the configured interval between samples.
func (sb *SensorBoard) SampleInterval() time.Duration {
	return sb.sampleInterval
}

// invokeCallbackSafe calls a sample callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Sample), sample Sample, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("sample callback panicked",
				"panic", r,
				"value", sample.Value,
			)
		}
	}()
	cb(sample)
}
