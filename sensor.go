package sensorboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jpalmerr/sensorboard/internal/httpsensor"
)

// Sensor is the source of sample values.
//
// ReadValue is called once per sample interval by a single goroutine; calls
// never overlap. The returned value is stored as-is; SensorBoard does not
// validate or clamp it. A non-nil error skips the sample and is logged.
type Sensor interface {
	ReadValue(ctx context.Context) (float64, error)
}

// SensorFunc adapts an ordinary function to the [Sensor] interface.
//
// Example:
//
//	sensor := sensorboard.SensorFunc(func(ctx context.Context) (float64, error) {
//	    return ultrasonic.DistanceCM()
//	})
type SensorFunc func(ctx context.Context) (float64, error)

// ReadValue calls f(ctx).
func (f SensorFunc) ReadValue(ctx context.Context) (float64, error) {
	return f(ctx)
}

// SyntheticSensor yields uniformly distributed values in [min, max).
//
// It stands in for real hardware during development; the reference device
// emits distances between 90 and 110 cm.
type SyntheticSensor struct {
	min, max float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticSensor creates a [SyntheticSensor].
//
// Returns an error if max is not greater than min.
func NewSyntheticSensor(min, max float64) (*SyntheticSensor, error) {
	if !(max > min) {
		return nil, fmt.Errorf("synthetic sensor max must be greater than min, got min=%v max=%v", min, max)
	}
	return &SyntheticSensor{
		min: min,
		max: max,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// ReadValue returns the next random sample.
func (s *SyntheticSensor) ReadValue(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min + s.rng.Float64()*(s.max-s.min), nil
}

// ConstantSensor always yields the same value. It is mostly useful in tests
// and for bench calibration.
type ConstantSensor float64

// ReadValue returns the constant.
func (c ConstantSensor) ReadValue(context.Context) (float64, error) {
	return float64(c), nil
}

// HTTPSensorConfig describes a sensor read over HTTP.
type HTTPSensorConfig struct {
	// URL is fetched with GET once per sample.
	URL string

	// Field selects a value inside a JSON body using dot notation, e.g.
	// "data.distance_cm". Empty means the body itself is the number.
	Field string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout bounds each request. Defaults to 2s. Keep it below the sample
	// interval or samples will be spaced by the timeout instead.
	Timeout time.Duration
}

// NewHTTPSensor creates a [Sensor] that reads its value from another
// device over HTTP. Non-2xx responses and unparseable bodies are
// reported as read errors, which skip the sample.
//
// Example:
//
//	sensor, err := sensorboard.NewHTTPSensor(sensorboard.HTTPSensorConfig{
//	    URL:   "http://esp32.local/reading",
//	    Field: "distance_cm",
//	})
func NewHTTPSensor(cfg HTTPSensorConfig) (Sensor, error) {
	s, err := httpsensor.New(httpsensor.Config{
		URL:     cfg.URL,
		Field:   cfg.Field,
		Headers: cfg.Headers,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("http sensor: %w", err)
	}
	return s, nil
}

// errNoSensor is returned by [New] when no sensor has been configured.
var errNoSensor = errors.New("a sensor is required")
