package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/jpalmerr/sensorboard/internal/broadcast"
	"github.com/jpalmerr/sensorboard/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient records publishes instead of talking to a broker.
type fakeClient struct {
	mu           sync.Mutex
	published    []*paho.Publish
	failAfter    int // publish error once this many have succeeded; 0 = never
	block        chan struct{}
	disconnected bool
}

func (f *fakeClient) Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && len(f.published) >= f.failAfter {
		return nil, errors.New("broken pipe")
	}
	f.published = append(f.published, p)
	return nil, nil
}

func (f *fakeClient) Disconnect(*paho.Disconnect) error {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) messages(t *testing.T) []broadcast.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broadcast.Message, 0, len(f.published))
	for _, p := range f.published {
		var m broadcast.Message
		if err := json.Unmarshal(p.Payload, &m); err != nil {
			t.Fatalf("invalid payload %q: %v", p.Payload, err)
		}
		out = append(out, m)
	}
	return out
}

func startSink(c client, cfg Config) *Sink {
	s := newSink(cfg, testLogger())
	s.start(c)
	return s
}

func TestSink_ID(t *testing.T) {
	if id := newSink(Config{Topic: "t"}, testLogger()).ID(); id != "mqtt" {
		t.Errorf("ID() = %q, want mqtt", id)
	}
	if id := newSink(Config{Topic: "t", ClientID: "esp32"}, testLogger()).ID(); id != "mqtt:esp32" {
		t.Errorf("ID() = %q, want mqtt:esp32", id)
	}
}

func TestSink_PublishesHistoryAndUpdates(t *testing.T) {
	fc := &fakeClient{}
	sink := startSink(fc, Config{Topic: "sensors/distance"})

	st, _ := store.NewSampleStore(3, 0)
	bc := broadcast.New(st, testLogger())
	bc.Publish(1)

	if err := bc.Register(sink); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	bc.Publish(2)

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	msgs := fc.messages(t)
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	if msgs[0].Event != broadcast.EventData {
		t.Errorf("first event = %q, want data", msgs[0].Event)
	}
	if msgs[1].Event != broadcast.EventUpdate || msgs[1].Data != 2.0 {
		t.Errorf("second message = %+v, want update 2", msgs[1])
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, p := range fc.published {
		if p.Topic != "sensors/distance" || p.QoS != 0 {
			t.Errorf("publish topic=%q qos=%d, want sensors/distance qos 0", p.Topic, p.QoS)
		}
	}
	if !fc.disconnected {
		t.Error("Close() did not disconnect the client")
	}
}

func TestSink_QueueFull(t *testing.T) {
	fc := &fakeClient{block: make(chan struct{})}
	sink := startSink(fc, Config{Topic: "t", QueueSize: 1})

	// first message is picked up by the blocked publisher, second fills the queue
	_ = sink.Send(broadcast.UpdateMessage(1))
	deadline := time.After(time.Second)
	for len(sink.queue) != 0 {
		select {
		case <-deadline:
			t.Fatal("publisher never picked up the first message")
		case <-time.After(time.Millisecond):
		}
	}
	if err := sink.Send(broadcast.UpdateMessage(2)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if err := sink.Send(broadcast.UpdateMessage(3)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Send() error = %v, want ErrQueueFull", err)
	}

	close(fc.block)
	_ = sink.Close()
}

func TestSink_PublishFailureStopsSink(t *testing.T) {
	fc := &fakeClient{failAfter: 1}
	sink := startSink(fc, Config{Topic: "t"})

	_ = sink.Send(broadcast.UpdateMessage(1))
	_ = sink.Send(broadcast.UpdateMessage(2))

	select {
	case <-sink.Done():
	case <-time.After(time.Second):
		t.Fatal("sink did not stop after publish failure")
	}

	if sink.Err() == nil {
		t.Error("Err() = nil after publish failure")
	}
	if err := sink.Send(broadcast.UpdateMessage(3)); err == nil {
		t.Error("Send() after failure should return an error")
	}
	_ = sink.Close()
}

func TestSink_FailedSinkEvictedByBroadcaster(t *testing.T) {
	fc := &fakeClient{failAfter: 1}
	sink := startSink(fc, Config{Topic: "t"})
	defer sink.Close()

	st, _ := store.NewSampleStore(3, 0)
	bc := broadcast.New(st, testLogger())
	if err := bc.Register(sink); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	bc.Publish(1)
	<-sink.Done()
	bc.Publish(2)

	if bc.Count() != 0 {
		t.Errorf("Count() = %d, want failed sink evicted", bc.Count())
	}
}

func TestSink_SendAfterClose(t *testing.T) {
	sink := startSink(&fakeClient{}, Config{Topic: "t"})
	_ = sink.Close()
	_ = sink.Close()

	if err := sink.Send(broadcast.UpdateMessage(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() error = %v, want ErrClosed", err)
	}
}

func TestSink_UnencodableMessage(t *testing.T) {
	sink := startSink(&fakeClient{}, Config{Topic: "t"})
	defer sink.Close()

	if err := sink.Send(broadcast.UpdateMessage(math.Inf(1))); err == nil {
		t.Error("Send(+Inf) expected encode error")
	}
}

func TestConnect_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := Connect(ctx, Config{Topic: "t"}, testLogger()); err == nil {
		t.Error("Connect() without broker expected error")
	}
	if _, err := Connect(ctx, Config{Broker: "localhost:1883"}, testLogger()); err == nil {
		t.Error("Connect() without topic expected error")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// port 1 on loopback is reserved and refuses connections
	if _, err := Connect(ctx, Config{Broker: "127.0.0.1:1", Topic: "t"}, testLogger()); err == nil {
		t.Error("Connect() to unreachable broker expected error")
	}
}
