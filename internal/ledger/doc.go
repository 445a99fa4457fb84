// Package ledger persists snapshot-check requests in SQLite.
//
// Each record maps a block height to the set of asset names whose holders
// should be snapshotted at that height. Rows are keyed by a one-character type
// tag ('C' for checks) plus the height, and the set is stored as a sorted JSON
// array. Writing a name that is already present is a no-op.
//
// Schema changes bump schemaVersion in schema.go; an older database is
// rejected with ErrSchemaMismatch rather than migrated.
package ledger
