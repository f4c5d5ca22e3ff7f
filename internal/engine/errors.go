package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
)

// DispatchError represents a failure while handling one inbound message.
//
// Dispatch errors are scoped to the affected user's turn: the engine logs
// them, answers the user where it can and keeps serving other messages.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchErrorCode

	// Message is a human-readable description.
	Message string

	UserID string
	Step   model.StepID
	Flow   flow.FlowID

	// Err is the underlying cause, if any.
	Err error
}

// DispatchErrorCode categorizes dispatch errors.
type DispatchErrorCode string

const (
	// ErrCodeCommitFailed indicates the storage port rejected a completed entity.
	ErrCodeCommitFailed DispatchErrorCode = "COMMIT_FAILED"

	// ErrCodeMissingKey indicates a completed payload lacks a key its path requires.
	ErrCodeMissingKey DispatchErrorCode = "MISSING_KEY"

	// ErrCodeUnknownStep indicates a persisted step that the catalog does not declare.
	ErrCodeUnknownStep DispatchErrorCode = "UNKNOWN_STEP"

	// ErrCodeStorage indicates a session read or write failed.
	ErrCodeStorage DispatchErrorCode = "STORAGE"

	// ErrCodeReferenceUnavailable indicates reference data could not be read.
	ErrCodeReferenceUnavailable DispatchErrorCode = "REFERENCE_UNAVAILABLE"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.UserID != "" {
		msg += fmt.Sprintf(" (user=%s, step=%s", e.UserID, e.Step)
		if e.Flow != "" {
			msg += fmt.Sprintf(", flow=%s", e.Flow)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error { return e.Err }

// IsCommitError returns true if the error is a failed entity commit.
// Uses errors.As to handle wrapped errors.
func IsCommitError(err error) bool {
	return hasCode(err, ErrCodeCommitFailed)
}

// IsMissingKeyError returns true if a completed payload was rejected for a
// missing key.
func IsMissingKeyError(err error) bool {
	return hasCode(err, ErrCodeMissingKey)
}

// IsStorageError returns true if a session read or write failed.
func IsStorageError(err error) bool {
	return hasCode(err, ErrCodeStorage)
}

func hasCode(err error, code DispatchErrorCode) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func storageError(sess model.Session, op string, err error) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeStorage,
		Message: op,
		UserID:  sess.UserID,
		Step:    sess.Step,
		Err:     err,
	}
}
