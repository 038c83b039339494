// Package model defines shared data types used across the concord runtime.
//
// Conventions:
//   - IDs: Snowflake, a uint64 carried on the wire as a decimal string
//   - Timestamps: time.Time, the zero value means "unset"
//   - Relations: entities reference their containers by ID, never by pointer
package model
