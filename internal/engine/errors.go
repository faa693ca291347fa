package engine

import (
	"errors"
	"fmt"
)

// SessionError is an error returned by an Engine operation.
type SessionError struct {
	// Code identifies the error category.
	Code SessionErrorCode

	// Message is a human-readable description.
	Message string

	// SessionID identifies the affected session, if one has started.
	SessionID string

	// Err is the underlying cause, if any.
	Err error
}

// SessionErrorCode categorizes session errors.
type SessionErrorCode string

const (
	// ErrCodeNotStarted indicates an operation that needs a started session.
	ErrCodeNotStarted SessionErrorCode = "NOT_STARTED"

	// ErrCodeAlreadyStarted indicates Start was called twice on one engine.
	ErrCodeAlreadyStarted SessionErrorCode = "ALREADY_STARTED"

	// ErrCodeNoDialogue indicates user input arrived with no dialogue to answer.
	ErrCodeNoDialogue SessionErrorCode = "NO_DIALOGUE"

	// ErrCodeGenerationFailed indicates the collaborator call failed.
	ErrCodeGenerationFailed SessionErrorCode = "GENERATION_FAILED"

	// ErrCodeInvalidResponse indicates the collaborator returned a document
	// that does not match the expected contract.
	ErrCodeInvalidResponse SessionErrorCode = "INVALID_RESPONSE"
)

// Error implements the error interface.
func (e *SessionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.SessionID != "" {
		msg += fmt.Sprintf(" (session=%s)", e.SessionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code SessionErrorCode) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotStarted reports whether err is a NOT_STARTED session error.
func IsNotStarted(err error) bool {
	return hasCode(err, ErrCodeNotStarted)
}

// IsNoDialogue reports whether err is a NO_DIALOGUE session error.
func IsNoDialogue(err error) bool {
	return hasCode(err, ErrCodeNoDialogue)
}

// IsGenerationFailed reports whether err is a GENERATION_FAILED session error.
func IsGenerationFailed(err error) bool {
	return hasCode(err, ErrCodeGenerationFailed)
}

// IsInvalidResponse reports whether err is an INVALID_RESPONSE session error.
func IsInvalidResponse(err error) bool {
	return hasCode(err, ErrCodeInvalidResponse)
}
