// Package server exposes a progress Tracker over HTTP.
//
// The Tracker has no internal locking; Server serializes every request that
// touches it with a single mutex. Mutating requests persist a snapshot of
// the serialized buffer when a SnapshotStore is configured; a failed save
// restores the previous buffer.
//
// Routes:
//
//	GET  /api/sources
//	GET  /api/records
//	POST /api/records                                  {"admitted": bool, "checksum": ...}
//	GET  /api/records/exists?novelId=...&sourceUrl=...  {"exists": bool}
//	GET  /api/data                                     raw buffer
//	PUT  /api/data                                     replace the whole buffer
//	GET  /api/snapshots?limit=N
package server
