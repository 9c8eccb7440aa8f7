package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// defaultObserverBuffer is the per-observer queue length used when a
// non-positive size is passed to [NewChannelObserver].
const defaultObserverBuffer = 100

// ErrObserverFull is returned by [ChannelObserver.Send] when the observer's
// queue is full or the observer has already been evicted.
var ErrObserverFull = errors.New("observer queue full")

// Observer is a connected client that can receive messages.
//
// Send must not block. An Observer returning an error from Send is treated as
// disconnected by the [Broadcaster].
type Observer interface {
	// ID returns a stable identifier, unique among registered observers.
	ID() string

	// Send delivers msg or reports why it could not.
	Send(msg Message) error
}

// ChannelObserver is an [Observer] backed by a bounded channel.
//
// The transport that owns the connection drains [ChannelObserver.Messages]
// and writes each message to the client. When the queue is full, Send drops
// the message, evicts the observer, and closes [ChannelObserver.Done] so the
// transport can tear the connection down.
type ChannelObserver struct {
	id       string
	messages chan Message
	done     chan struct{}

	mu      sync.Mutex
	evicted bool
}

var _ Observer = (*ChannelObserver)(nil)

// NewChannelObserver creates a [ChannelObserver] with a random UUID and a
// queue of the given size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = defaultObserverBuffer
	}
	return &ChannelObserver{
		id:       uuid.NewString(),
		messages: make(chan Message, buffer),
		done:     make(chan struct{}),
	}
}

// ID returns the observer's UUID.
func (o *ChannelObserver) ID() string {
	return o.id
}

// Send enqueues msg without blocking.
func (o *ChannelObserver) Send(msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.evicted {
		return ErrObserverFull
	}

	select {
	case o.messages <- msg:
		return nil
	default:
		o.evicted = true
		close(o.done)
		return ErrObserverFull
	}
}

// Messages returns the queue of pending messages.
func (o *ChannelObserver) Messages() <-chan Message {
	return o.messages
}

// Done is closed once the observer has been evicted for falling behind.
func (o *ChannelObserver) Done() <-chan struct{} {
	return o.done
}

// Evicted reports whether the observer has been evicted.
func (o *ChannelObserver) Evicted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.evicted
}
