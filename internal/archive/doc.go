// Package archive persists message events to PostgreSQL.
//
// The writer batches incoming messages and inserts them with
// ON CONFLICT DO NOTHING, so replayed events after a gateway resume do
// not produce duplicate rows. Storage is append-only.
package archive
