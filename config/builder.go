package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/sensorboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options include the sensor, sampling, capacity, port,
// title, logger, alarm and MQTT settings. Alarm transitions are logged
// through logger at Warn (triggered) and Info (cleared).
func BuildOptions(cfg *Config, logger *slog.Logger) ([]sensorboard.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sensor, err := buildSensor(cfg.Sensor)
	if err != nil {
		return nil, err
	}

	opts := []sensorboard.Option{
		sensorboard.WithSensor(sensor),
		sensorboard.WithSampleInterval(cfg.SampleInterval.Duration()),
		sensorboard.WithCapacity(cfg.Capacity),
		sensorboard.WithPlaceholder(cfg.Placeholder),
		sensorboard.WithPort(cfg.Port),
		sensorboard.WithLogger(logger),
	}

	if cfg.Title != "" {
		opts = append(opts, sensorboard.WithTitle(cfg.Title))
	}

	if cfg.Alarm != nil {
		alarm, err := buildAlarm(*cfg.Alarm, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sensorboard.WithAlarm(alarm))
	}

	if cfg.MQTT != nil {
		opts = append(opts, sensorboard.WithMQTT(sensorboard.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}))
	}

	return opts, nil
}

// buildSensor converts a SensorConfig to an SDK Sensor.
func buildSensor(sc SensorConfig) (sensorboard.Sensor, error) {
	switch sc.Type {
	case SensorSynthetic, "":
		min, max := float64(defaultSyntheticMin), float64(defaultSyntheticMax)
		if sc.Min != nil {
			min = *sc.Min
		}
		if sc.Max != nil {
			max = *sc.Max
		}
		s, err := sensorboard.NewSyntheticSensor(min, max)
		if err != nil {
			return nil, err
		}
		return s, nil
	case SensorConstant:
		return sensorboard.ConstantSensor(sc.Value), nil
	case SensorHTTP:
		return sensorboard.NewHTTPSensor(sensorboard.HTTPSensorConfig{
			URL:     sc.URL,
			Field:   sc.Field,
			Headers: sc.Headers,
			Timeout: sc.Timeout.Duration(),
		})
	default:
		return nil, fmt.Errorf("sensor: unknown type %q", sc.Type)
	}
}

// buildAlarm converts an AlarmConfig to a logging ThresholdAlarm.
func buildAlarm(ac AlarmConfig, logger *slog.Logger) (*sensorboard.ThresholdAlarm, error) {
	return sensorboard.NewThresholdAlarm(sensorboard.AlarmType(ac.Type), ac.Threshold, func(e sensorboard.AlarmEvent) {
		if e.Triggered {
			logger.Warn("alarm triggered",
				"type", string(e.Type),
				"threshold", e.Threshold,
				"value", e.Value,
			)
			return
		}
		logger.Info("alarm cleared",
			"type", string(e.Type),
			"threshold", e.Threshold,
			"value", e.Value,
		)
	})
}
