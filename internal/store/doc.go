// Package store provides the fixed-capacity sample history for SensorBoard.
//
// This package is internal to SensorBoard and owns the ring buffer that holds
// the most recent samples. It is the sole source of truth for "recent
// history" and owns all synchronization around it.
//
// The main components are:
//
//   - [Store]: Interface defining the append and snapshot operations
//   - [SampleStore]: Mutex-guarded circular buffer implementation of Store
//   - [History]: A snapshot annotated with capacity and fill count
//
// Appends overwrite the oldest sample once the buffer has wrapped. Snapshots
// are copies taken inside the same critical section as appends, so a reader
// never observes a partially written slot.
//
// Users of the sensorboard library should not need to interact with this
// package directly. Storage is managed internally by SensorBoard.
package store
