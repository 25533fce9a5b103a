// Package ir provides the host value representation for readtrack.
//
// Every entity that crosses the boundary between the progress store and its
// host (CLI, HTTP server, scenario harness) travels as an ir.Value. The
// representation is JSON-shaped but deliberately narrower than encoding/json's
// any:
//   - Numbers are int64 only; floats are rejected at parse time
//   - Object keys iterate in RFC 8785 order via SortedKeys
//   - Canonical output is NFC normalized and never HTML escaped
//
// This package imports nothing internal. All other internal packages may
// import ir.
package ir
