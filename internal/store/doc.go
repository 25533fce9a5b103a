// Package store provides SQLite-backed durable storage for progress buffers.
//
// The progress aggregate owns no storage of its own; hosts persist the buffer
// it serializes. This package keeps those buffers as an append-only list of
// snapshots:
//   - seq is a logical clock, strictly increasing per database
//   - Latest is the snapshot with the highest seq
//   - Saving a buffer whose checksum equals the latest snapshot is a no-op
//
// Checksums come from ir.SnapshotChecksum, so buffers that differ only in
// key order or whitespace are the same snapshot.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
