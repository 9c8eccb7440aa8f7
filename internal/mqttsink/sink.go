package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/jpalmerr/sensorboard/internal/broadcast"
)

const (
	defaultQueueSize      = 100
	defaultKeepAlive      = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

var (
	// ErrQueueFull is returned by Send when the publish queue is full.
	ErrQueueFull = errors.New("mqtt publish queue full")

	// ErrClosed is returned by Send after the sink has stopped.
	ErrClosed = errors.New("mqtt sink closed")
)

// Config describes the broker connection.
type Config struct {
	// Broker is the host:port of the MQTT server.
	Broker string

	// Topic receives every message.
	Topic string

	// ClientID identifies this device to the broker.
	ClientID string

	// Username and Password are optional credentials.
	Username string
	Password string

	// KeepAlive defaults to 30s.
	KeepAlive time.Duration

	// QueueSize bounds pending publishes; defaults to 100.
	QueueSize int
}

// client is the subset of *paho.Client the sink needs.
type client interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(d *paho.Disconnect) error
}

// Sink is a [broadcast.Observer] that forwards messages to MQTT.
type Sink struct {
	id     string
	topic  string
	client client
	logger *slog.Logger

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	err    error
}

var _ broadcast.Observer = (*Sink)(nil)

// Connect dials the broker, performs the MQTT handshake and starts the
// publish loop.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt topic is required")
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}
	if logger == nil {
		logger = slog.Default()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial mqtt broker %s: %w", cfg.Broker, err)
	}

	s := newSink(cfg, logger)
	c := paho.NewClient(paho.ClientConfig{
		Conn:     conn,
		ClientID: cfg.ClientID,
		OnClientError: func(err error) {
			s.fail(fmt.Errorf("mqtt client error: %w", err))
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			s.fail(fmt.Errorf("mqtt server disconnected (reason %d)", d.ReasonCode))
		},
	})

	connack, err := c.Connect(ctx, &paho.Connect{
		ClientID:     cfg.ClientID,
		CleanStart:   true,
		KeepAlive:    uint16(cfg.KeepAlive.Seconds()),
		Username:     cfg.Username,
		UsernameFlag: cfg.Username != "",
		Password:     []byte(cfg.Password),
		PasswordFlag: cfg.Password != "",
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	if connack != nil && connack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect refused (reason %d)", connack.ReasonCode)
	}

	s.start(c)
	logger.Info("mqtt sink connected", "broker", cfg.Broker, "topic", cfg.Topic)
	return s, nil
}

// newSink builds an unstarted sink; [Sink.start] attaches the client.
func newSink(cfg Config, logger *slog.Logger) *Sink {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	id := "mqtt"
	if cfg.ClientID != "" {
		id = "mqtt:" + cfg.ClientID
	}

	return &Sink{
		id:     id,
		topic:  cfg.Topic,
		logger: logger,
		queue:  make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// start attaches a connected client and launches the publish loop.
func (s *Sink) start(c client) {
	s.client = c
	s.wg.Add(1)
	go s.run()
}

// ID returns "mqtt" or "mqtt:<client id>".
func (s *Sink) ID() string {
	return s.id
}

// Send encodes msg and queues it for publishing without blocking.
func (s *Sink) Send(msg broadcast.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if s.err != nil {
			return s.err
		}
		return ErrClosed
	}

	select {
	case s.queue <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// Done is closed when the sink stops, either through Close or because the
// broker connection failed.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure that stopped the sink, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close drains pending publishes, disconnects from the broker and waits for
// the publish loop to exit. Close is idempotent.
func (s *Sink) Close() error {
	s.stop(nil)
	s.wg.Wait()
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

func (s *Sink) run() {
	defer s.wg.Done()

	for payload := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
		_, err := s.client.Publish(ctx, &paho.Publish{
			QoS:     0,
			Topic:   s.topic,
			Payload: payload,
		})
		cancel()

		if err != nil {
			// TODO: reconnect with backoff instead of giving up on the first failure.
			s.fail(fmt.Errorf("mqtt publish: %w", err))
			for range s.queue {
			}
			return
		}
	}
}

// fail stops the sink and records err as the reason.
func (s *Sink) fail(err error) {
	s.logger.Error("mqtt sink failed", "error", err)
	s.stop(err)
}

func (s *Sink) stop(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.queue)
	close(s.done)
}
