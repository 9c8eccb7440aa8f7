package main

import (
	"context"
	"math"
	"sync"
	"time"
)

// doorSensor simulates an ultrasonic sensor above a garage door. The
// reading sweeps slowly between open (about 100 cm) and closed (about 15 cm).
type doorSensor struct {
	mu    sync.Mutex
	start time.Time
}

func newDoorSensor() *doorSensor {
	return &doorSensor{start: time.Now()}
}

func (d *doorSensor) ReadValue(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	phase := time.Since(d.start).Seconds() / 20 * 2 * math.Pi
	return 57.5 + 42.5*math.Cos(phase), nil
}
