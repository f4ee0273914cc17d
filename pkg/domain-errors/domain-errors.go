package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Credential lifecycle error codes. Callers must be able to tell
	// "nothing happened yet, safe to retry" apart from "a business rule
	// blocked this", so agent transport failures and state machine
	// rejections get distinct codes.
	CodeAgentUnreachable  Code = "agent_unreachable"        // transport/timeout talking to the agent, retryable
	CodeAgentRejected     Code = "agent_rejected"           // agent returned non-2xx with a reason, not retried
	CodeMalformedResponse Code = "malformed_agent_response" // agent payload missing expected structure
	CodeProofNotVerified  Code = "proof_not_verified"       // terminal proof exchange with verified != true
	CodeProofTimeout      Code = "proof_timeout"            // proof exchange never reached a terminal state
	CodeDuplicateCred     Code = "duplicate_credential"     // holder already has an active credential
	CodeCredRevoked       Code = "credential_revoked"       // holder's credential is revoked and not reinstated
	CodeConnectionFailed  Code = "connection_failed"        // connection bootstrap retries exhausted
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Retryable reports whether the error is transient. Only transport-level
// failures qualify; business rule violations never do.
func Retryable(err error) bool {
	return HasCode(err, CodeAgentUnreachable) || HasCode(err, CodeTimeout)
}
