package httpsensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Second

// Config describes where and how to read a value.
type Config struct {
	// URL must be http or https.
	URL string

	// Field is a dot-separated JSON path, e.g. "data.distance_cm".
	// Empty means the whole body is the value.
	Field string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout applies per request; defaults to 2s.
	Timeout time.Duration
}

// Sensor reads one number per request.
type Sensor struct {
	client  *Client
	url     string
	path    []string
	headers map[string]string
	timeout time.Duration
}

// New validates cfg and creates a [Sensor].
func New(cfg Config) (*Sensor, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url must have a host")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var path []string
	if cfg.Field != "" {
		path = strings.Split(cfg.Field, ".")
		for _, p := range path {
			if p == "" {
				return nil, fmt.Errorf("invalid field path %q", cfg.Field)
			}
		}
	}

	return &Sensor{
		client:  NewClient(),
		url:     cfg.URL,
		path:    path,
		headers: cfg.Headers,
		timeout: timeout,
	}, nil
}

// ReadValue fetches the URL and extracts the configured number.
func (s *Sensor) ReadValue(ctx context.Context) (float64, error) {
	resp, err := s.client.Fetch(ctx, s.url, s.headers, s.timeout)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.url)
	}
	return extract(resp.Body, s.path)
}

// Close releases idle connections.
func (s *Sensor) Close() {
	s.client.Close()
}

// extract walks a JSON document using dot notation parts and converts the
// leaf to a number. Numeric strings are accepted.
func extract(body []byte, parts []string) (float64, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		// plain-text bodies like "101.5\n"
		if len(parts) == 0 {
			if v, perr := strconv.ParseFloat(strings.TrimSpace(string(body)), 64); perr == nil {
				return v, nil
			}
		}
		return 0, fmt.Errorf("response is not JSON: %w", err)
	}

	current := data
	for i, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("field %q is not an object", strings.Join(parts[:i], "."))
		}
		current, ok = obj[part]
		if !ok {
			return 0, fmt.Errorf("field %q not found", strings.Join(parts[:i+1], "."))
		}
	}

	switch v := current.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not a number", current)
	}
}
