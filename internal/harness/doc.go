// Package harness runs moderation scenarios against a real engine.
//
// A scenario drives an Engine over a fresh SQLite store and journal with
// a manual clock and fixed submission ids, records one trace line per
// step, and evaluates assertions on the final state.
//
// # Scenario Format
//
//	name: student_approve
//	description: "Approving twice publishes once"
//	ids: [stud0001]
//	steps:
//	  - action: ingest
//	    category: Student
//	  - action: decide
//	    id: stud0001
//	    decision: approve
//	  - action: decide
//	    id: stud0001
//	    decision: approve
//	    expect_error: ALREADY_DECIDED
//	assertions:
//	  - type: status
//	    id: stud0001
//	    status: approved
//	  - type: publish_count
//	    count: 1
//
// # Step Actions
//
//   - ingest: category (or payload for raw JSON)
//   - decide: id, decision
//   - bulk_approve: category (empty means every category)
//   - bulk_reject: duration (age)
//   - cleanup: duration (retention window)
//   - restore
//   - wipe_store: delete every row, keeping the journal
//   - advance: duration (moves the clock)
//
// A step may set expect_error to an engine error code, and expect to a
// map of result counters (matched, succeeded, failed, deleted, restored,
// skipped, scanned).
//
// # Assertion Types
//
//   - stats: total, pending, approved, rejected and per_category
//   - status: id has status (or "absent")
//   - publish_count: number of publications delivered
//   - prompt_count: number of moderator prompts delivered
//
// # Deterministic Testing
//
// The clock starts at testutil.DefaultEpoch and only moves on advance
// steps. Bulk approvals run without delay. Notifications are drained
// after every step, so traces are identical across runs and suitable for
// golden comparison.
package harness
