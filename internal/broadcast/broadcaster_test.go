package broadcast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/sensorboard/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingObserver captures every message it receives.
type recordingObserver struct {
	id   string
	fail bool

	mu       sync.Mutex
	messages []Message
}

func newRecorder(id string) *recordingObserver {
	return &recordingObserver{id: id}
}

func (r *recordingObserver) ID() string { return r.id }

func (r *recordingObserver) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("connection gone")
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingObserver) received() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *recordingObserver) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

func newTestBroadcaster(t *testing.T, capacity int) (*Broadcaster, *store.SampleStore) {
	t.Helper()
	st, err := store.NewSampleStore(capacity, 0)
	if err != nil {
		t.Fatalf("NewSampleStore() error = %v", err)
	}
	return New(st, testLogger()), st
}

func TestBroadcaster_RegisterSendsHistory(t *testing.T) {
	b, st := newTestBroadcaster(t, 4)
	st.Append(1)
	st.Append(2)

	obs := newRecorder("a")
	if err := b.Register(obs); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	msgs := obs.received()
	if len(msgs) != 1 {
		t.Fatalf("received %d messages, want 1", len(msgs))
	}
	if msgs[0].Event != EventData {
		t.Errorf("Event = %q, want %q", msgs[0].Event, EventData)
	}
	if want := st.Snapshot(); !reflect.DeepEqual(msgs[0].Data, want) {
		t.Errorf("Data = %v, want %v", msgs[0].Data, want)
	}
	if b.Count() != 1 {
		t.Errorf("Count() = %d, want 1", b.Count())
	}
}

func TestBroadcaster_RegisterFailureNotAdded(t *testing.T) {
	b, _ := newTestBroadcaster(t, 4)

	obs := newRecorder("broken")
	obs.setFail(true)

	if err := b.Register(obs); err == nil {
		t.Fatal("Register() expected error for failing observer, got nil")
	}
	if b.Count() != 0 {
		t.Errorf("Count() = %d, want 0", b.Count())
	}
}

func TestBroadcaster_NotifyAllReachesEveryObserver(t *testing.T) {
	b, _ := newTestBroadcaster(t, 4)

	observers := []*recordingObserver{newRecorder("a"), newRecorder("b"), newRecorder("c")}
	for _, o := range observers {
		if err := b.Register(o); err != nil {
			t.Fatalf("Register(%s) error = %v", o.id, err)
		}
	}

	b.NotifyAll(42)

	for _, o := range observers {
		msgs := o.received()
		if len(msgs) != 2 {
			t.Fatalf("%s received %d messages, want 2", o.id, len(msgs))
		}
		if msgs[1] != UpdateMessage(42) {
			t.Errorf("%s update = %+v, want %+v", o.id, msgs[1], UpdateMessage(42))
		}
	}
}

func TestBroadcaster_DeregisteredObserverGetsNothing(t *testing.T) {
	b, _ := newTestBroadcaster(t, 4)

	a := newRecorder("a")
	gone := newRecorder("gone")
	_ = b.Register(a)
	_ = b.Register(gone)

	b.Deregister("gone")
	b.NotifyAll(7)

	if n := len(gone.received()); n != 1 {
		t.Errorf("deregistered observer received %d messages, want only the history", n)
	}
	if n := len(a.received()); n != 2 {
		t.Errorf("registered observer received %d messages, want 2", n)
	}
}

func TestBroadcaster_DeregisterIsIdempotent(t *testing.T) {
	b, _ := newTestBroadcaster(t, 4)

	// never registered
	b.Deregister("unknown")

	_ = b.Register(newRecorder("a"))
	b.Deregister("a")
	b.Deregister("a")

	if b.Count() != 0 {
		t.Errorf("Count() = %d, want 0", b.Count())
	}
}

func TestBroadcaster_FailedObserverEvicted(t *testing.T) {
	b, _ := newTestBroadcaster(t, 4)

	healthy := newRecorder("healthy")
	flaky := newRecorder("flaky")
	_ = b.Register(healthy)
	_ = b.Register(flaky)

	flaky.setFail(true)
	b.NotifyAll(1)

	if got := b.IDs(); !reflect.DeepEqual(got, []string{"healthy"}) {
		t.Errorf("IDs() = %v, want [healthy]", got)
	}

	// evicted observer is not retried even if it recovers
	flaky.setFail(false)
	b.NotifyAll(2)

	if n := len(flaky.received()); n != 1 {
		t.Errorf("evicted observer received %d messages, want 1", n)
	}
	if n := len(healthy.received()); n != 3 {
		t.Errorf("healthy observer received %d messages, want 3", n)
	}
}

func TestBroadcaster_PublishScenario(t *testing.T) {
	b, st := newTestBroadcaster(t, 4)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		b.Publish(v)
	}

	a := newRecorder("A")
	if err := b.Register(a); err != nil {
		t.Fatalf("Register(A) error = %v", err)
	}

	b.Publish(6)

	bObs := newRecorder("B")
	if err := b.Register(bObs); err != nil {
		t.Fatalf("Register(B) error = %v", err)
	}

	wantA := []Message{
		HistoryMessage([]float64{2, 3, 4, 5}),
		UpdateMessage(6),
	}
	if got := a.received(); !reflect.DeepEqual(got, wantA) {
		t.Errorf("A received %+v, want %+v", got, wantA)
	}

	wantB := []Message{HistoryMessage([]float64{3, 4, 5, 6})}
	if got := bObs.received(); !reflect.DeepEqual(got, wantB) {
		t.Errorf("B received %+v, want %+v", got, wantB)
	}

	if got := st.Snapshot(); !reflect.DeepEqual(got, []float64{3, 4, 5, 6}) {
		t.Errorf("Snapshot() = %v, want [3 4 5 6]", got)
	}
}

// TestBroadcaster_RegisterDuringPublish checks that an observer registered
// while samples are flowing sees each sample exactly once: either inside its
// history or as an update.
func TestBroadcaster_RegisterDuringPublish(t *testing.T) {
	const samples = 2000
	b, _ := newTestBroadcaster(t, samples)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= samples; i++ {
			b.Publish(float64(i))
		}
	}()

	observers := make([]*recordingObserver, 20)
	for i := range observers {
		observers[i] = newRecorder(fmt.Sprintf("obs-%d", i))
		if err := b.Register(observers[i]); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		time.Sleep(100 * time.Microsecond)
	}
	wg.Wait()

	for _, o := range observers {
		msgs := o.received()
		history := msgs[0].Data.([]float64)

		var seen []float64
		for _, v := range history {
			if v != 0 {
				seen = append(seen, v)
			}
		}
		for _, m := range msgs[1:] {
			seen = append(seen, m.Data.(float64))
		}

		if len(seen) != samples {
			t.Fatalf("%s saw %d samples, want %d", o.id, len(seen), samples)
		}
		for i, v := range seen {
			if v != float64(i+1) {
				t.Fatalf("%s sample %d = %v, want %v", o.id, i, v, i+1)
			}
		}
	}
}

func TestBroadcaster_ConcurrentAccess(t *testing.T) {
	b, _ := newTestBroadcaster(t, 100)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			b.Publish(float64(i))
		}
	}()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				o := NewChannelObserver(10)
				_ = b.Register(o)
				b.Deregister(o.ID())
				b.Deregister(o.ID())
			}
		}(i)
	}

	wg.Wait()

	if b.Count() != 0 {
		t.Errorf("Count() = %d, want 0", b.Count())
	}
}

func TestBroadcaster_SlowObserverDoesNotBlock(t *testing.T) {
	b, _ := newTestBroadcaster(t, 10)

	// never drained
	slow := NewChannelObserver(1)
	if err := b.Register(slow); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	fast := NewChannelObserver(1000)
	if err := b.Register(fast); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(float64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() blocked on slow observer")
	}

	select {
	case <-slow.Done():
	default:
		t.Error("slow observer should have been evicted")
	}
	if got := b.IDs(); !reflect.DeepEqual(got, []string{fast.ID()}) {
		t.Errorf("IDs() = %v, want only the fast observer", got)
	}
	if n := len(fast.Messages()); n != 201 {
		t.Errorf("fast observer queued %d messages, want 201", n)
	}
}
