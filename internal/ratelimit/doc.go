// Package ratelimit tracks per-route request quotas advertised by the
// service.
//
// One Bucket mirrors the server-side quota state for one exact route key.
// The Table is owned by a single API client instance; it is never shared
// process-wide.
package ratelimit
