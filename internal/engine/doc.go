// Package engine implements the kickoff submission lifecycle engine.
//
// The engine owns every state change a submission goes through:
//
//	ingest ─► pending ─┬─► approved (publication dispatched)
//	                   └─► rejected
//
// ARCHITECTURE:
//
// Dependencies are injected: a Store (sole source of truth), a Journal
// (independent backup written before the store), a Notifier (outbound
// chat port), a Clock and an IDGenerator. There is no package-level state.
//
// Write ordering on ingest:
// 1. Payload validated; nothing is written for an invalid payload
// 2. Journal entry written and synced
// 3. Store row written with status pending
// 4. Moderator notification dispatched in the background
//
// A failure between 2 and 3 leaves a journal-only orphan, which Restore
// turns back into a pending submission. The reverse (store row without a
// backup) cannot happen.
//
// Decisions:
// Store.SetStatus is an atomic compare-and-set on status = 'pending'. When a
// text command and a button race on one id, exactly one wins; the other
// receives ALREADY_DECIDED. The publication for an approval is dispatched
// only after the status commit, and its failure never rolls the status back.
//
// Notifications run in goroutines tracked by a WaitGroup. Wait blocks until
// they finish; nothing inside a state transition waits on them.
package engine
