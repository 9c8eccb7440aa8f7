package sensorboard

import (
	"fmt"
	"sync"
	"time"
)

// AlarmType selects the comparison a [ThresholdAlarm] applies.
type AlarmType string

const (
	// AlarmGreater triggers while samples are above the threshold.
	AlarmGreater AlarmType = "greater"

	// AlarmLess triggers while samples are below the threshold.
	AlarmLess AlarmType = "less"
)

// AlarmEvent describes a transition of a [ThresholdAlarm].
type AlarmEvent struct {
	// Triggered is true when the alarm enters the triggered state and false
	// when it clears.
	Triggered bool

	// Value is the sample that caused the transition.
	Value float64

	// Threshold is the configured limit.
	Threshold float64

	// Type is the configured comparison.
	Type AlarmType

	// At is when the transition was observed.
	At time.Time
}

// ThresholdAlarm watches samples and reports edges, not levels: the handler
// runs once when the condition starts holding and once when it stops.
type ThresholdAlarm struct {
	typ       AlarmType
	threshold float64
	handler   func(AlarmEvent)

	mu        sync.Mutex
	triggered bool
}

// NewThresholdAlarm creates a [ThresholdAlarm].
//
// Returns an error for an unknown type or nil handler.
func NewThresholdAlarm(typ AlarmType, threshold float64, handler func(AlarmEvent)) (*ThresholdAlarm, error) {
	if typ != AlarmGreater && typ != AlarmLess {
		return nil, fmt.Errorf("alarm type must be %q or %q, got %q", AlarmGreater, AlarmLess, typ)
	}
	if handler == nil {
		return nil, fmt.Errorf("alarm handler cannot be nil")
	}
	return &ThresholdAlarm{typ: typ, threshold: threshold, handler: handler}, nil
}

// Observe evaluates one sample.
func (a *ThresholdAlarm) Observe(value float64, at time.Time) {
	var hit bool
	switch a.typ {
	case AlarmGreater:
		hit = value > a.threshold
	case AlarmLess:
		hit = value < a.threshold
	}

	a.mu.Lock()
	changed := hit != a.triggered
	a.triggered = hit
	a.mu.Unlock()

	if changed {
		a.handler(AlarmEvent{
			Triggered: hit,
			Value:     value,
			Threshold: a.threshold,
			Type:      a.typ,
			At:        at,
		})
	}
}

// Triggered reports whether the last observed sample met the condition.
func (a *ThresholdAlarm) Triggered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.triggered
}
