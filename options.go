package sensorboard

import (
	"errors"
	"log/slog"
	"time"
)

// sbConfig holds mutable state during SensorBoard construction.
type sbConfig struct {
	title           string
	sensor          Sensor
	sampleInterval  time.Duration
	capacity        int
	placeholder     float64
	port            int
	logger          *slog.Logger
	sampleCallbacks []func(Sample)
	alarms          []*ThresholdAlarm
	mqtt            *MQTTConfig
}

// Option is a function that configures a [SensorBoard] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*sbConfig) error

// WithSensor sets the sample source. Required.
//
// Example:
//
//	sensor, _ := sensorboard.NewSyntheticSensor(90, 110)
//	sb, err := sensorboard.New(sensorboard.WithSensor(sensor))
//
// Returns an error if the sensor is nil.
func WithSensor(s Sensor) Option {
	return func(cfg *sbConfig) error {
		if s == nil {
			return errors.New("sensor cannot be nil")
		}
		cfg.sensor = s
		return nil
	}
}

// WithSampleInterval sets how often the sensor is read.
//
// Defaults to 100ms (10 Hz) if not specified.
//
// Returns an error if the duration is zero or negative.
func WithSampleInterval(d time.Duration) Option {
	return func(cfg *sbConfig) error {
		if d <= 0 {
			return errors.New("sample interval must be positive")
		}
		cfg.sampleInterval = d
		return nil
	}
}

// WithCapacity sets how many recent samples are retained.
//
// Defaults to 100 if not specified. At the default interval this holds the
// last ten seconds.
//
// Returns an error if the value is zero or negative.
func WithCapacity(n int) Option {
	return func(cfg *sbConfig) error {
		if n <= 0 {
			return errors.New("capacity must be positive")
		}
		cfg.capacity = n
		return nil
	}
}

// WithPlaceholder sets the value reported for slots that have not yet
// received a sample. Defaults to 0.
func WithPlaceholder(v float64) Option {
	return func(cfg *sbConfig) error {
		cfg.placeholder = v
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *sbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the SensorBoard instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *sbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "SensorBoard".
func WithTitle(title string) Option {
	return func(cfg *sbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithSampleCallback registers a function to be called after every sample is
// stored and broadcast.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks run on the sampling goroutine and must be
// non-blocking. A slow callback delays the next sample.
//
// Panics within callbacks are recovered and logged. Nil callbacks are
// silently ignored.
func WithSampleCallback(cb func(Sample)) Option {
	return func(cfg *sbConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.sampleCallbacks = append(cfg.sampleCallbacks, cb)
		return nil
	}
}

// WithAlarm attaches a [ThresholdAlarm] that observes every sample.
//
// Example:
//
//	alarm, _ := sensorboard.NewThresholdAlarm(sensorboard.AlarmLess, 20, func(e sensorboard.AlarmEvent) {
//	    if e.Triggered {
//	        log.Printf("object closer than %.0f cm", e.Threshold)
//	    }
//	})
//	sb, err := sensorboard.New(sensorboard.WithSensor(s), sensorboard.WithAlarm(alarm))
//
// Returns an error if the alarm is nil.
func WithAlarm(a *ThresholdAlarm) Option {
	return func(cfg *sbConfig) error {
		if a == nil {
			return errors.New("alarm cannot be nil")
		}
		cfg.alarms = append(cfg.alarms, a)
		return nil
	}
}

// MQTTConfig enables forwarding of history and updates to an MQTT broker.
type MQTTConfig struct {
	// Broker is host:port, e.g. "broker.local:1883".
	Broker string

	// Topic receives both "data" and "update" messages.
	Topic string

	// ClientID identifies the device to the broker.
	ClientID string

	// Username and Password are optional.
	Username string
	Password string
}

// WithMQTT forwards every message to an MQTT broker in addition to the
// HTTP observers. A broker that cannot be reached at start-up is logged and
// skipped; it does not prevent the dashboard from starting.
//
// Returns an error if Broker or Topic is empty.
func WithMQTT(m MQTTConfig) Option {
	return func(cfg *sbConfig) error {
		if m.Broker == "" {
			return errors.New("mqtt broker is required")
		}
		if m.Topic == "" {
			return errors.New("mqtt topic is required")
		}
		cfg.mqtt = &m
		return nil
	}
}
