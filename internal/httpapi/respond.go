package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/kickoff/internal/engine"
)

// CodeBadRequest marks malformed query parameters.
const CodeBadRequest = "BAD_REQUEST"

// CodeUnauthorized marks a missing or wrong admin token.
const CodeUnauthorized = "UNAUTHORIZED"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, id string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message, SubmissionID: id}})
}

// writeEngineError maps an engine error onto an HTTP status.
func writeEngineError(w http.ResponseWriter, err error) {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), "")
		return
	}
	writeError(w, statusFor(ee.Code), string(ee.Code), ee.Error(), ee.SubmissionID)
}

func statusFor(code engine.ErrorCode) int {
	switch code {
	case engine.CodeInvalidPayload:
		return http.StatusBadRequest
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeAlreadyDecided:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
