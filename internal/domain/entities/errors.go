package entities

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidMode             = errors.New("invalid session mode")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrEmptyQuestionPool       = errors.New("no eligible questions")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionNotActive        = errors.New("session is not active")
	ErrQuestionNotInSession    = errors.New("question is not at the current session position")
	ErrDuplicateAnswer         = errors.New("question already answered in this session")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrStorageUnavailable      = errors.New("storage unavailable")
)

// Error carries an error kind together with the ids it concerns.
type Error struct {
	Kind       error
	SessionID  string
	QuestionID string
	Detail     string
	Err        error // underlying cause, if any
}

// NewError builds an *Error for the given kind.
func NewError(kind error, sessionID, questionID string) *Error {
	return &Error{Kind: kind, SessionID: sessionID, QuestionID: questionID}
}

// WithDetail sets a human-readable detail and returns e.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithCause sets the underlying cause and returns e.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.SessionID != "" {
		msg += fmt.Sprintf(" (session=%s", e.SessionID)
		if e.QuestionID != "" {
			msg += fmt.Sprintf(", question=%s", e.QuestionID)
		}
		msg += ")"
	} else if e.QuestionID != "" {
		msg += fmt.Sprintf(" (question=%s)", e.QuestionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the error kind of err, or nil if err carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidMode,
		ErrInvalidRequest,
		ErrEmptyQuestionPool,
		ErrSessionNotFound,
		ErrSessionNotActive,
		ErrQuestionNotInSession,
		ErrDuplicateAnswer,
		ErrSessionAlreadyCompleted,
		ErrStorageUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
