package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/sensorboard"
)

func TestBuildOptions_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg, nil)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	sb, err := sensorboard.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sb.Capacity() != 100 {
		t.Errorf("Capacity() = %d, want 100", sb.Capacity())
	}
	if sb.SampleInterval() != 100*time.Millisecond {
		t.Errorf("SampleInterval() = %v, want 100ms", sb.SampleInterval())
	}
	if sb.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", sb.Port())
	}
}

func TestBuildOptions_Applied(t *testing.T) {
	cfg, err := Parse([]byte(`
port: 9123
sample_interval: 50ms
capacity: 8
placeholder: -1
title: Bench
mqtt:
  broker: localhost:1883
  topic: bench/distance
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg, slog.Default())
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	sb, err := sensorboard.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sb.Port() != 9123 || sb.Capacity() != 8 || sb.SampleInterval() != 50*time.Millisecond {
		t.Errorf("got port=%d capacity=%d interval=%v", sb.Port(), sb.Capacity(), sb.SampleInterval())
	}
	for i, v := range sb.Snapshot() {
		if v != -1 {
			t.Errorf("Snapshot()[%d] = %v, want placeholder -1", i, v)
		}
	}
}

func TestBuildSensor(t *testing.T) {
	min, max := 1.0, 2.0

	tests := []struct {
		name    string
		sc      SensorConfig
		check   func(float64) bool
		wantErr bool
	}{
		{"synthetic", SensorConfig{Type: SensorSynthetic, Min: &min, Max: &max}, func(v float64) bool { return v >= 1 && v < 2 }, false},
		{"synthetic defaults", SensorConfig{Type: SensorSynthetic}, func(v float64) bool { return v >= 90 && v < 110 }, false},
		{"constant", SensorConfig{Type: SensorConstant, Value: 3}, func(v float64) bool { return v == 3 }, false},
		{"http", SensorConfig{Type: SensorHTTP, URL: "%s"}, func(v float64) bool { return v == 12.5 }, false},
		{"inverted", SensorConfig{Type: SensorSynthetic, Min: &max, Max: &min}, nil, true},
		{"unknown", SensorConfig{Type: "lidar"}, nil, true},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("12.5"))
	}))
	defer server.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sc.Type == SensorHTTP {
				tt.sc.URL = fmt.Sprintf(tt.sc.URL, server.URL)
			}
			s, err := buildSensor(tt.sc)
			if tt.wantErr {
				if err == nil {
					t.Fatal("buildSensor() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildSensor() error = %v", err)
			}
			v, err := s.ReadValue(context.Background())
			if err != nil {
				t.Fatalf("ReadValue() error = %v", err)
			}
			if !tt.check(v) {
				t.Errorf("ReadValue() = %v out of expected range", v)
			}
		})
	}
}

func TestBuildAlarm_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	alarm, err := buildAlarm(AlarmConfig{Type: "greater", Threshold: 10}, logger)
	if err != nil {
		t.Fatalf("buildAlarm() error = %v", err)
	}

	now := time.Now()
	alarm.Observe(5, now)
	alarm.Observe(15, now)
	alarm.Observe(20, now)
	alarm.Observe(8, now)

	out := buf.String()
	if strings.Count(out, "alarm triggered") != 1 {
		t.Errorf("want one 'alarm triggered' line, got:\n%s", out)
	}
	if strings.Count(out, "alarm cleared") != 1 {
		t.Errorf("want one 'alarm cleared' line, got:\n%s", out)
	}
}
