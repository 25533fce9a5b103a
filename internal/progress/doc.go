// Package progress holds the reading-progress aggregate: source
// configurations plus per-novel read records, persisted by the host as one
// JSON buffer.
//
// The aggregate never fails outward:
//   - An undecodable buffer becomes the default state (one default source,
//     no records)
//   - An entity that cannot convert to or from a host value is omitted
//   - A record for an unconfigured source is refused with false
//
// # Wire format
//
//	{"totalConfig": [<source>...], "readRecord": [<record>...]}
//
// # Concurrency
//
// A Store has a single owner. It performs no locking; hosts that share one
// across goroutines must serialize access themselves.
//
// Store is generic over the two entity capabilities it depends on (Source and
// Record). Tracker binds it to source.Config and record.ReadRecord.
package progress
