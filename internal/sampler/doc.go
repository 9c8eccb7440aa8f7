// Package sampler provides the periodic sample producer for SensorBoard.
//
// This package is internal to SensorBoard. A [Producer] reads the sensor on a
// fixed period and hands each value to a [Publisher], which records it and
// notifies live observers. Cycles never overlap: a single goroutine owns the
// ticker and runs read-then-publish to completion before the next tick.
//
// Users of the sensorboard library should not need to interact with this
// package directly. Configuration is done through the main sensorboard package.
package sampler
