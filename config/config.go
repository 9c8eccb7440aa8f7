// Package config provides YAML configuration parsing for SensorBoard.
//
// This package enables running SensorBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Garage Door
//	port: 8080
//	sample_interval: 100ms
//	capacity: 100
//
//	sensor:
//	  type: synthetic
//	  min: 90
//	  max: 110
//
//	alarm:
//	  type: less
//	  threshold: 20
//
//	log:
//	  level: info
//	  format: json
//	  file: /var/log/sensorboard.log
//
//	mqtt:
//	  broker: ${MQTT_BROKER:-localhost:1883}
//	  topic: garage/distance
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// minSampleInterval bounds how fast the sensor is read.
	minSampleInterval = 10 * time.Millisecond

	// maxCapacity bounds the ring buffer, and with it the size of every
	// history message sent to a new observer.
	maxCapacity = 100000

	defaultPort           = 8080
	defaultSampleInterval = 100 * time.Millisecond
	defaultCapacity       = 100
	defaultSyntheticMin   = 90
	defaultSyntheticMax   = 110
)

// Sensor types accepted by sensor.type.
const (
	SensorSynthetic = "synthetic"
	SensorConstant  = "constant"
	SensorHTTP      = "http"
)

// Config is the root configuration structure for SensorBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "SensorBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// SampleInterval is the time between sensor reads.
	// Accepts duration strings like "100ms", "1s".
	// Defaults to 100ms.
	SampleInterval Duration `yaml:"sample_interval"`

	// Capacity is the number of retained samples. Defaults to 100.
	Capacity int `yaml:"capacity"`

	// Placeholder fills slots that have not received a sample. Defaults to 0.
	Placeholder float64 `yaml:"placeholder"`

	// Sensor selects the sample source.
	Sensor SensorConfig `yaml:"sensor"`

	// Alarm is an optional threshold alarm logged on each transition.
	Alarm *AlarmConfig `yaml:"alarm"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// MQTT optionally forwards messages to a broker.
	MQTT *MQTTConfig `yaml:"mqtt"`
}

// SensorConfig selects and parameterises the sample source.
type SensorConfig struct {
	// Type is "synthetic" (default), "constant" or "http".
	Type string `yaml:"type"`

	// Min and Max bound synthetic values. Default 90 and 110.
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`

	// Value is emitted by the constant sensor.
	Value float64 `yaml:"value"`

	// URL is read by the http sensor.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Field is the dot-notation JSON path of the value (http sensor).
	Field string `yaml:"field"`

	// Timeout is the per-request timeout (http sensor). Defaults to 2s.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with each request (http sensor).
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// AlarmConfig defines a threshold alarm.
type AlarmConfig struct {
	// Type is "greater" or "less".
	Type string `yaml:"type"`

	// Threshold is the limit compared against each sample.
	Threshold float64 `yaml:"threshold"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is debug, info (default), warn or error.
	Level string `yaml:"level"`

	// Format is json (default) or text.
	Format string `yaml:"format"`

	// File enables rotated file output instead of stderr.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which the file is rotated. Defaults to 10.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Defaults to 3.
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays removes rotated files older than this. Zero keeps them.
	MaxAgeDays int `yaml:"max_age_days"`
}

// MQTTConfig defines the broker connection.
type MQTTConfig struct {
	// Broker is host:port.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Broker string `yaml:"broker"`

	// Topic receives history and update messages.
	Topic string `yaml:"topic"`

	// ClientID defaults to "sensorboard".
	ClientID string `yaml:"client_id"`

	// Username and Password are optional and support substitution.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the title, sensor URL and headers,
// log file and MQTT values.
// Defaults are applied for Port (8080), SampleInterval (100ms), Capacity
// (100) and the synthetic sensor range (90..110).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = Duration(defaultSampleInterval)
	}
	if c.Capacity == 0 {
		c.Capacity = defaultCapacity
	}
	if c.Sensor.Type == "" {
		c.Sensor.Type = SensorSynthetic
	}
	if c.Sensor.Type == SensorSynthetic {
		if c.Sensor.Min == nil {
			v := float64(defaultSyntheticMin)
			c.Sensor.Min = &v
		}
		if c.Sensor.Max == nil {
			v := float64(defaultSyntheticMax)
			c.Sensor.Max = &v
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.MQTT != nil && c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "sensorboard"
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	var err error

	if c.Title, err = expandEnvVars(c.Title); err != nil {
		return fmt.Errorf("title: %w", err)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.SampleInterval.Duration() < minSampleInterval {
		return fmt.Errorf("sample_interval must be at least %s, got %s", minSampleInterval, c.SampleInterval.Duration())
	}
	if c.Capacity < 1 || c.Capacity > maxCapacity {
		return fmt.Errorf("capacity must be between 1 and %d, got %d", maxCapacity, c.Capacity)
	}

	switch c.Sensor.Type {
	case SensorSynthetic:
		if !(*c.Sensor.Max > *c.Sensor.Min) {
			return fmt.Errorf("sensor: max must be greater than min, got min=%v max=%v", *c.Sensor.Min, *c.Sensor.Max)
		}
	case SensorConstant:
	case SensorHTTP:
		if err := c.Sensor.expandAndValidateHTTP(c.SampleInterval.Duration()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("sensor: unknown type %q (expected %q, %q or %q)",
			c.Sensor.Type, SensorSynthetic, SensorConstant, SensorHTTP)
	}

	if c.Alarm != nil && c.Alarm.Type != "greater" && c.Alarm.Type != "less" {
		return fmt.Errorf("alarm: type must be greater or less, got %q", c.Alarm.Type)
	}

	if err := c.Log.validate(); err != nil {
		return err
	}

	if c.MQTT != nil {
		if err := c.MQTT.expandAndValidate(); err != nil {
			return err
		}
	}

	return nil
}

func (sc *SensorConfig) expandAndValidateHTTP(interval time.Duration) error {
	if sc.URL == "" {
		return errors.New("sensor: url is required for type http")
	}
	expanded, err := expandEnvVars(sc.URL)
	if err != nil {
		return fmt.Errorf("sensor: url: %w", err)
	}
	sc.URL = expanded

	parsedURL, err := url.Parse(sc.URL)
	if err != nil {
		return fmt.Errorf("sensor: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("sensor: url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	for k, v := range sc.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("sensor: headers[%s]: %w", k, err)
		}
		sc.Headers[k] = expanded
	}

	if sc.Timeout < 0 {
		return fmt.Errorf("sensor: timeout cannot be negative, got %s", sc.Timeout.Duration())
	}
	if sc.Timeout.Duration() > interval {
		return fmt.Errorf("sensor: timeout %s must not exceed sample_interval %s", sc.Timeout.Duration(), interval)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: level must be debug, info, warn or error, got %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log: format must be json or text, got %q", l.Format)
	}

	var err error
	if l.File, err = expandEnvVars(l.File); err != nil {
		return fmt.Errorf("log: file: %w", err)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return errors.New("log: rotation limits cannot be negative")
	}
	return nil
}

func (m *MQTTConfig) expandAndValidate() error {
	var err error
	if m.Broker, err = expandEnvVars(m.Broker); err != nil {
		return fmt.Errorf("mqtt: broker: %w", err)
	}
	if m.Topic, err = expandEnvVars(m.Topic); err != nil {
		return fmt.Errorf("mqtt: topic: %w", err)
	}
	if m.Username, err = expandEnvVars(m.Username); err != nil {
		return fmt.Errorf("mqtt: username: %w", err)
	}
	if m.Password, err = expandEnvVars(m.Password); err != nil {
		return fmt.Errorf("mqtt: password: %w", err)
	}

	if m.Broker == "" {
		return errors.New("mqtt: broker is required")
	}
	if _, _, err := net.SplitHostPort(m.Broker); err != nil {
		return fmt.Errorf("mqtt: broker must be host:port: %w", err)
	}
	if m.Topic == "" {
		return errors.New("mqtt: topic is required")
	}
	return nil
}
