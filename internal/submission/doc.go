// Package submission defines the submission record moderated by kickoff.
//
// This package contains the record type, the parsed view of the provider
// payload, id generation and payload digests. It imports nothing internal
// except the schema validator, so store, journal and engine can all depend
// on it without cycles.
//
// Key design constraints:
//   - Payload bytes are stored verbatim and never rewritten
//   - Category is an opaque, NFC-normalized label; no enum of known forms
//   - Status has exactly three values and two legal transitions
package submission
