// Package broadcast provides the live-observer registry for SensorBoard.
//
// This package is internal to SensorBoard. It keeps a non-owning registry of
// connected observers, sends each newly registered observer the full sample
// history, and pushes every new sample to all registered observers.
//
// The main components are:
//
//   - [Broadcaster]: Observer registry with history-on-register and fan-out
//   - [Observer]: Interface implemented by anything that can receive a [Message]
//   - [ChannelObserver]: Bounded, non-blocking channel-backed Observer used by
//     the HTTP transports
//
// Delivery never blocks the producer: an observer whose Send fails is
// removed after the fan-out loop and is never retried with the same message.
//
// Users of the sensorboard library should not need to interact with this
// package directly.
package broadcast
