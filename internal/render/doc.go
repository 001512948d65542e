// Package render turns submissions into chat messages.
//
// All text shown to moderators and to the public channel is produced
// here, as Telegram HTML. The engine only hands over structured values
// (submission.Submission, submission.Publication), so wording, icons and
// per-category layouts can change without touching lifecycle code.
//
// Field values are HTML-escaped. Fields whose key contains more than one
// underscore are per-option sub-fields the form provider emits next to
// the real checkbox answer; they are dropped from every message.
package render
