// Package harness runs conformance scenarios against the progress tracker.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	initial: default              # or a literal buffer
//	steps:
//	  - admit: { novelId: "42", mainPageUrl: "https://www.xbiquge.so/book/42/" }
//	    expect: true
//	  - replace: '{"totalConfig":[],"readRecord":[]}'
//	  - exists: { novel_id: "42", source_url: "https://www.xbiquge.so/book/42/" }
//	    expect: false
//	  - count: { sources: 1, records: 0 }
//	assertions:
//	  - type: record_fields
//	    where: { novelId: "42", mainPageUrl: "https://www.xbiquge.so/book/42/" }
//	    expect: { chapterId: "7" }
//
// Each step performs exactly one operation. admit and exists take an
// optional expect; count always compares.
//
// # Assertion Types
//
//   - record_present: a record with novel_id and source_url exists
//   - record_absent: no such record exists
//   - record_fields: the record matching where carries the expect fields
//   - record_order: records appear in exactly the novel_ids order
//   - source_names: sources appear in exactly the names order
//
// # Deterministic Testing
//
// admit stamps a missing readAt from testutil.DeterministicClock, and trace
// events carry a sequence number, so a scenario produces identical output on
// every run. RunWithGolden compares the canonical JSON of the trace and the
// final buffer against testdata/golden/{name}.golden.
package harness
