// Package state holds the in-memory snapshot of remote entities.
//
// The cache is written only by the gateway dispatch goroutine and read
// from anywhere. Every upsert clones the prior entity before mutating, so
// before/after event records never race a concurrent reader.
package state
