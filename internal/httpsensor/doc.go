// Package httpsensor reads sample values from a remote HTTP endpoint.
//
// It lets SensorBoard sample a sensor that is exposed by another device,
// for example a microcontroller that serves its current reading as JSON.
// A [Sensor] fetches the URL on every read and extracts one number from
// the response body, either the whole body or a field addressed with dot
// notation.
//
// Users of the sensorboard library should not need to interact with this
// package directly. Use sensorboard.NewHTTPSensor instead.
package httpsensor
