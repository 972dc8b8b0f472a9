// Package apperr defines the error taxonomy shared by the comment widget core.
//
// Every failure that reaches a user action is one of four kinds: the input was
// invalid, nobody is signed in, the remote store could not be reached, or an
// attachment was uploaded but the record referencing it was not written.
// Callers classify errors with errors.Is against the sentinel values.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthRequired      = errors.New("sign in required")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrPartialWrite      = errors.New("partial write")
	ErrNotFound          = errors.New("not found")
)

// ValidationError reports content that was rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthRequiredError reports a write attempted without a signed-in identity.
type AuthRequiredError struct {
	Op string
}

func (e *AuthRequiredError) Error() string {
	if e.Op == "" {
		return ErrAuthRequired.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrAuthRequired)
}

// Is makes errors.Is(err, ErrAuthRequired) match.
func (e *AuthRequiredError) Is(target error) bool { return target == ErrAuthRequired }

// AuthRequired returns an AuthRequiredError for op.
func AuthRequired(op string) error {
	return &AuthRequiredError{Op: op}
}

// RemoteUnavailableError reports a network or store failure on a read or write.
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s: timed out", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRemoteUnavailable) match.
func (e *RemoteUnavailableError) Is(target error) bool { return target == ErrRemoteUnavailable }

// Timeout reports whether the operation ran out of time.
func (e *RemoteUnavailableError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// PartialWriteError reports an uploaded attachment whose record write failed.
// The upload is not rolled back; URL names the orphaned object.
type PartialWriteError struct {
	URL string
	Err error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("attachment %s uploaded but record not written: %v", e.URL, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPartialWrite) match.
func (e *PartialWriteError) Is(target error) bool { return target == ErrPartialWrite }

// Remote classifies err as a remote failure of op unless it already belongs
// to the taxonomy. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &RemoteUnavailableError{Op: op, Err: err}
}

// Classified reports whether err already carries one of the taxonomy kinds.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAuthRequired) ||
		errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrPartialWrite) ||
		errors.Is(err, ErrNotFound)
}
