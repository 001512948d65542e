// Package schema validates provider webhook bodies before ingestion.
//
// The accepted shape is declared in payload.cue and checked with the CUE
// Go API, so a payload is rejected before any state is created.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// EventFormResponse is the event-type discriminator for form submissions.
const EventFormResponse = "FORM_RESPONSE"

//go:embed payload.cue
var payloadCUE string

// requiredPaths must be present in every payload, not merely allowed.
var requiredPaths = []string{"eventType", "data.fields"}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid payload")

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return ErrInvalid.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, e.Details[0])
}

// Is lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// The CUE runtime is not safe for concurrent use, so every validation
// runs under mu against one compiled schema.
var (
	once    sync.Once
	mu      sync.Mutex
	cctx    *cue.Context
	payload cue.Value
	loadErr error
)

func load() {
	cctx = cuecontext.New()
	v := cctx.CompileString(payloadCUE, cue.Filename("payload.cue"))
	if err := v.Err(); err != nil {
		loadErr = fmt.Errorf("compile payload schema: %w", err)
		return
	}
	payload = v.LookupPath(cue.ParsePath("#Payload"))
	if err := payload.Err(); err != nil {
		loadErr = fmt.Errorf("lookup #Payload: %w", err)
	}
}

// Validate checks raw JSON against #Payload.
//
// Returns a *ValidationError (matching ErrInvalid) when the body is not
// JSON, the event type is not FORM_RESPONSE, or data.fields is missing.
func Validate(raw []byte) error {
	once.Do(load)
	if loadErr != nil {
		return loadErr
	}

	expr, err := cuejson.Extract("payload.json", raw)
	if err != nil {
		return &ValidationError{Details: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}

	mu.Lock()
	defer mu.Unlock()

	v := cctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return &ValidationError{Details: details(err)}
	}
	// The schema supplies eventType and an open fields list on its own,
	// so presence has to be checked on the input value.
	for _, path := range requiredPaths {
		if !v.LookupPath(cue.ParsePath(path)).Exists() {
			return &ValidationError{Details: []string{fmt.Sprintf("missing required field %q", path)}}
		}
	}
	if err := payload.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: details(err)}
	}
	return nil
}

// details flattens a CUE error list into one line per error.
func details(err error) []string {
	errs := cueerrors.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
