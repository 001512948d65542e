package engine

import (
	"errors"
	"fmt"
)

// Error represents a failed engine operation.
//
// Every error names the submission it concerned (when there is one) so a
// moderator can correct and retry. Errors compare by Code:
//
//	errors.Is(err, engine.ErrAlreadyDecided)
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// SubmissionID identifies the affected submission.
	SubmissionID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeInvalidPayload indicates malformed ingestion input. No state changed.
	CodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"

	// CodeNotFound indicates an unknown submission id. No state changed.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyDecided indicates the submission is no longer pending.
	// This is informational (double click, racing command and button),
	// not a fault. No state changed.
	CodeAlreadyDecided ErrorCode = "ALREADY_DECIDED"

	// CodeStoreUnavailable indicates a durable write or read failed.
	// The operation was aborted.
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// CodeNotifierFailure indicates best-effort delivery failed after a
	// committed state change. It is logged, never retried, never rolled back.
	CodeNotifierFailure ErrorCode = "NOTIFIER_FAILURE"
)

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidPayload   = &Error{Code: CodeInvalidPayload}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrAlreadyDecided   = &Error{Code: CodeAlreadyDecided}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable}
	ErrNotifierFailure  = &Error{Code: CodeNotifierFailure}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.SubmissionID != "" {
		msg = fmt.Sprintf("%s (submission=%s)", msg, e.SubmissionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the engine error code of err, or "" if err is not an
// engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBenign reports whether err is an informational condition that should
// be shown to the moderator rather than treated as a fault.
func IsBenign(err error) bool {
	switch CodeOf(err) {
	case CodeAlreadyDecided, CodeNotFound, CodeInvalidPayload:
		return true
	}
	return false
}

func newError(code ErrorCode, id, message string, err error) *Error {
	return &Error{Code: code, Message: message, SubmissionID: id, Err: err}
}
