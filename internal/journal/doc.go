// Package journal keeps a SQLite history of published negotiation snapshots.
//
// The daemon registers a Store as a pipeline sink; every re-evaluation pass is
// recorded with its status, mode counts and full JSON payload, and the table
// is pruned to the configured history limit per connector. The CLI history
// command reads it back with Recent.
package journal
