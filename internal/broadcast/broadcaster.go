package broadcast

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jpalmerr/sensorboard/internal/store"
)

// Broadcaster fans out samples to registered observers.
//
// The registry is guarded by its own lock, independent of the store's. Lock
// order is always Broadcaster then Store.
//
// Register and Publish are serialized against each other, so an observer
// registered concurrently with a new sample either sees that sample in its
// history or as an update, never both and never neither.
type Broadcaster struct {
	store  store.Store
	logger *slog.Logger

	// publishMu orders Register against Publish.
	publishMu sync.Mutex

	mu        sync.RWMutex
	observers map[string]Observer
}

// New creates a [Broadcaster] that sends history from st.
//
// If logger is nil, [slog.Default] is used.
func New(st store.Store, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		store:     st,
		logger:    logger,
		observers: make(map[string]Observer),
	}
}

// Register adds o to the registry and sends it the current full history.
//
// If the history cannot be delivered, o is not added and the send error is
// returned. Registering an ID that is already present replaces the previous
// observer.
func (b *Broadcaster) Register(o Observer) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	if err := o.Send(HistoryMessage(b.store.Snapshot())); err != nil {
		b.logger.Warn("observer rejected history", "observer_id", o.ID(), "error", err)
		return fmt.Errorf("send history to observer %s: %w", o.ID(), err)
	}

	b.mu.Lock()
	b.observers[o.ID()] = o
	count := len(b.observers)
	b.mu.Unlock()

	b.logger.Info("observer registered", "observer_id", o.ID(), "observer_count", count)
	return nil
}

// Deregister removes the observer with the given id.
//
// Unknown or already removed ids are a no-op.
func (b *Broadcaster) Deregister(id string) {
	b.mu.Lock()
	_, ok := b.observers[id]
	delete(b.observers, id)
	count := len(b.observers)
	b.mu.Unlock()

	if ok {
		b.logger.Info("observer deregistered", "observer_id", id, "observer_count", count)
	}
}

// Publish appends value to the store and notifies every observer.
//
// This is the producer's single pipeline stage.
func (b *Broadcaster) Publish(value float64) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.store.Append(value)
	b.NotifyAll(value)
}

// NotifyAll sends an update containing value to every registered observer.
//
// The registry is copied before iterating so concurrent Register and
// Deregister calls never race the loop. Observers whose Send fails are
// removed once the loop ends.
func (b *Broadcaster) NotifyAll(value float64) {
	b.mu.RLock()
	targets := make([]Observer, 0, len(b.observers))
	for _, o := range b.observers {
		targets = append(targets, o)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	msg := UpdateMessage(value)
	var failed []Observer
	for _, o := range targets {
		if err := o.Send(msg); err != nil {
			failed = append(failed, o)
			b.logger.Warn("observer delivery failed", "observer_id", o.ID(), "error", err)
		}
	}

	if len(failed) == 0 {
		return
	}

	b.mu.Lock()
	for _, o := range failed {
		// only remove the instance that failed; the id may have been re-registered
		if cur, ok := b.observers[o.ID()]; ok && cur == o {
			delete(b.observers, o.ID())
		}
	}
	count := len(b.observers)
	b.mu.Unlock()

	b.logger.Info("evicted failed observers", "evicted", len(failed), "observer_count", count)
}

// Count returns the number of registered observers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// IDs returns the registered observer ids in sorted order.
func (b *Broadcaster) IDs() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
