package models

import (
	"errors"
	"fmt"
)

// ConflictError is returned when an add would collide with an existing active identity.
type ConflictError struct {
	Resource      string // "role", "function_category", ...
	Name          string // the offending identity key
	ConflictingID string // id of the row already holding the identity
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists (id %s)", e.Resource, e.Name, e.ConflictingID)
}

// RenameConflictError is returned when a rename target already exists as an active identity
// and the caller did not opt into a merge.
type RenameConflictError struct {
	OldName    string
	NewName    string
	ExistingID string
}

func (e *RenameConflictError) Error() string {
	return fmt.Sprintf("cannot rename %q to %q: target already exists (id %s)", e.OldName, e.NewName, e.ExistingID)
}

// NotFoundError is returned when a mutating operation targets a missing id or name.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ParseError is returned when a hierarchy sheet or snapshot is structurally unreadable.
// Missing names the structural element that could not be found.
type ParseError struct {
	Missing string
	Row     int // 0 when the failure is not tied to a specific row
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse failed at row %d: missing %s", e.Row, e.Missing)
	}
	return fmt.Sprintf("parse failed: missing %s", e.Missing)
}

// ValidationError is returned when a request is missing a required field or
// carries a value the engine rejects (self-loop relationship, bad merge mode, ...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BatchItemError pairs a failed batch item with the error it produced.
type BatchItemError struct {
	Index int    `json:"index"`
	Item  string `json:"item"`
	Error string `json:"error"`
}

func IsConflict(err error) bool {
	var ce *ConflictError
	var re *RenameConflictError
	return errors.As(err, &ce) || errors.As(err, &re)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	var pe *ParseError
	return errors.As(err, &ve) || errors.As(err, &pe)
}
