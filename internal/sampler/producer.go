package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sensor is the source of sample values.
//
// This mirrors the public sensorboard.Sensor interface so that the sampler
// does not import the root package.
type Sensor interface {
	ReadValue(ctx context.Context) (float64, error)
}

// Publisher receives each successfully read sample.
type Publisher interface {
	Publish(value float64)
}

// Producer reads a [Sensor] at a fixed interval and publishes each value.
//
// The first sample is taken one interval after Start, matching a device loop
// that sleeps before sampling. Sensor errors and panics skip the cycle; they
// never stop the producer.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Producer struct {
	sensor    Sensor
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	onSample  func(value float64, at time.Time)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	samples atomic.Int64
	errors  atomic.Int64
}

// NewProducer creates a new [Producer].
//
// Parameters:
//   - sensor: Source of sample values
//   - publisher: Destination of every successful read
//   - interval: Time between cycles; must be positive
//   - logger: Logger for skipped cycles (nil uses slog.Default)
//
// The producer must be started with [Producer.Start] and stopped with
// [Producer.Stop].
func NewProducer(sensor Sensor, publisher Publisher, interval time.Duration, logger *slog.Logger) (*Producer, error) {
	if sensor == nil {
		return nil, errors.New("sensor is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		sensor:    sensor,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}, nil
}

// OnSample registers fn to run after every published sample, on the
// producer goroutine. It must be called before Start.
func (p *Producer) OnSample(fn func(value float64, at time.Time)) {
	p.onSample = fn
}

// Start begins the sampling loop in a background goroutine.
//
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
// If ctx is nil, context.Background() is used as the parent context.
func (p *Producer) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	runCtx := p.ctx // capture under lock to avoid race
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.cycle(runCtx)
			}
		}
	}()
}

// Stop halts the producer and waits for the in-flight cycle to finish.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (p *Producer) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Samples returns the number of samples published so far.
func (p *Producer) Samples() int64 {
	return p.samples.Load()
}

// Errors returns the number of cycles skipped because the sensor failed.
func (p *Producer) Errors() int64 {
	return p.errors.Load()
}

// cycle runs one read-then-publish step.
func (p *Producer) cycle(ctx context.Context) {
	value, err := p.safeRead(ctx)
	if err != nil {
		p.errors.Add(1)
		if ctx.Err() == nil {
			p.logger.Warn("sensor read failed", "error", err)
		}
		return
	}

	p.publisher.Publish(value)
	p.samples.Add(1)

	if p.onSample != nil {
		p.onSample(value, time.Now())
	}
}

// safeRead calls the sensor with panic recovery.
// If the sensor panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (p *Producer) safeRead(ctx context.Context) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			p.logger.Error("sensor panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = fmt.Errorf("sensor panic (correlation_id: %s)", correlationID)
		}
	}()
	return p.sensor.ReadValue(ctx)
}
