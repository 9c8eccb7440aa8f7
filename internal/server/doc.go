// Package server provides the HTTP server for the SensorBoard dashboard and API.
//
// This package is internal to SensorBoard and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/JS dashboard at "/"
//   - Pull API: JSON snapshot at "/data" and annotated history at "/api/history"
//   - Server-Sent Events: Live "data"/"update" stream at "/api/sse"
//   - WebSocket: The same live stream as text frames at "/ws"
//
// Every live connection is registered with the broadcaster as an observer for
// its lifetime and deregistered on disconnect, eviction, or shutdown.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the sensorboard library should not need to interact with this
// package directly. The server is started automatically by [sensorboard.SensorBoard.Start].
package server
