// Package gateway owns the push-stream connection to the concord service.
//
// Conn is a single websocket connection that decodes framed payloads.
// Supervisor drives the connection lifecycle: identify/resume, heartbeat,
// reconnection with bounded backoff, and a single ordered frame channel
// consumed by the event dispatcher.
package gateway
