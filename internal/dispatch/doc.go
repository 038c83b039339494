// Package dispatch turns raw gateway frames into typed events.
//
// The dispatcher consumes the supervisor's ordered frame channel on a
// single goroutine: it decodes each frame, applies the corresponding
// entity-cache mutation (cloning prior state into the event's Before
// field first), then invokes registered handlers in registration order.
// Event N's handlers finish before event N+1 is decoded, so handlers
// always observe an internally consistent cache. Frames of unrecognized
// type are surfaced as Unknown events rather than dropped.
package dispatch
