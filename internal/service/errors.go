package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingToken       = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("only clinical staff can manage notes")
	ErrNotAuthor          = errors.New("only the author can modify a note")
	ErrNoteNotFound       = errors.New("clinical note not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrNotAPatient        = errors.New("target user is not a patient")
)

// ValidationError reports a request payload that cannot be accepted.
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
