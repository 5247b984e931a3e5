// Package flowerr defines the typed error taxonomy shared by all flow
// domains. Services return these errors; HTTP handlers translate them to
// status codes in one place so that no domain leaks transport concerns.
package flowerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that branch on failure class
// rather than on the specific code.
type Kind int

const (
	// KindValidation — malformed input (unknown triage level, bad UUID).
	KindValidation Kind = iota + 1
	// KindIllegalTransition — the state machine rejects the requested move.
	KindIllegalTransition
	// KindConflict — a concurrent writer already took the slot/resource.
	KindConflict
	// KindGating — a precondition (payment, modality) is not satisfied.
	KindGating
	// KindNotFound — unknown aggregate ID.
	KindNotFound
	// KindCorruptState — stored state matches no known enum value. Fatal
	// for the operation; logged for operator attention, never retried.
	KindCorruptState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIllegalTransition:
		return "illegal_transition"
	case KindConflict:
		return "conflict"
	case KindGating:
		return "gating"
	case KindNotFound:
		return "not_found"
	case KindCorruptState:
		return "corrupt_state"
	}
	return "unknown"
}

// Error is a typed flow error with a stable machine-readable code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is matches errors by code so sentinel comparison with errors.Is works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// E builds a new typed error.
func E(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a typed error.
func Wrap(err error, kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the kind of err, or 0 if err is not a flow error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the machine code of err, or "" if err is not a flow error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to the HTTP status the API contract uses.
// Unclassified errors are treated as internal. Payment gates surface as
// 402; every other unsatisfied precondition is a 409.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindIllegalTransition:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindGating:
		if CodeOf(err) == "payment_required" {
			return http.StatusPaymentRequired
		}
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindCorruptState:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Body is the JSON error envelope written by handlers.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// ResponseBody builds the JSON envelope for err.
func ResponseBody(err error) Body {
	var e *Error
	if errors.As(err, &e) {
		return Body{Error: e.Msg, Code: e.Code, Kind: e.Kind.String()}
	}
	return Body{Error: "internal server error"}
}
