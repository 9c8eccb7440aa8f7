package store

// Store defines the interface for recording samples and reading them back.
//
// Store implementations must be safe for concurrent access. Append is the
// only mutating operation; Snapshot must reflect a single point in time.
type Store interface {
	// Append records a new sample, overwriting the oldest one when full.
	Append(value float64)

	// Snapshot returns every slot in oldest-to-newest order.
	// The returned slice is a copy; modifications do not affect the store.
	Snapshot() []float64
}

// History is a snapshot annotated with how much of it holds real samples.
//
// Samples always has Capacity entries. Before the buffer has wrapped once,
// the first Capacity-Filled entries are placeholders; clients computing
// min/max or averages should only look at Samples[Capacity-Filled:].
type History struct {
	// Capacity is the fixed number of slots in the buffer.
	Capacity int `json:"capacity"`

	// Filled is the number of slots holding real samples.
	Filled int `json:"filled"`

	// Samples are the slot values, oldest first.
	Samples []float64 `json:"samples"`
}

// Valid returns only the entries holding real samples, oldest first.
func (h History) Valid() []float64 {
	return h.Samples[len(h.Samples)-h.Filled:]
}
