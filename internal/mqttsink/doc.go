// Package mqttsink publishes SensorBoard samples to an MQTT broker.
//
// A [Sink] is a broadcast observer: it is registered like any live client,
// receives the full history once and then every update, and forwards each
// message as JSON to a single topic at QoS 0. Sends are queued on a bounded
// channel and published from a dedicated goroutine so a slow broker never
// stalls the sampler.
package mqttsink
