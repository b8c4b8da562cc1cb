// Package store provides SQLite-backed durable storage for the release
// instruction runner.
//
// The store holds two tables:
//   - options: a scoped key-value mapping (the host's "options"), where the
//     execution status mapping lives under ir.StatusOption
//   - executions: an append-only history of runSingle outcomes
//
// # Scopes
//
// Every option lives in a scope. The empty scope "" is global (network
// wide); any other value names one tenant. Scoping is resolved by callers;
// the store treats scopes as opaque strings.
//
// # Read-Modify-Write
//
// Update runs inside a transaction opened with BEGIN IMMEDIATE, so the write
// lock is taken before the read. Two processes updating the same database
// serialize instead of losing each other's writes.
//
// # Connections
//
// Settings are passed as DSN parameters so the driver applies them to every
// connection: WAL journaling, synchronous=NORMAL, a 5s busy timeout,
// foreign keys, and _txlock=immediate. Schema changes are numbered
// migrations tracked in PRAGMA user_version.
//
// History ordering uses the autoincrement id and the per-run logical seq,
// never wall-clock timestamps.
package store
