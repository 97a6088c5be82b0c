package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned by authentication for any bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("record not found")
	// ErrStaleRecord means the record changed since it was read.
	ErrStaleRecord = errors.New("record was modified by someone else")
)

// ValidationError carries one error per offending form field.
type ValidationError struct {
	Fields map[string]error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports whether any field failed with target.
func (e *ValidationError) Is(target error) bool {
	for _, err := range e.Fields {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Validation accumulates field errors.
type Validation struct {
	fields map[string]error
}

func NewValidation() *Validation {
	return &Validation{fields: map[string]error{}}
}

// Add records err for field, keeping the first error per field.
func (v *Validation) Add(field string, err error) {
	if _, ok := v.fields[field]; ok {
		return
	}
	v.fields[field] = err
}

// Check is Add for a possibly nil error.
func (v *Validation) Check(field string, err error) {
	if err != nil {
		v.Add(field, err)
	}
}

// Err returns nil when nothing was added.
func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// ConflictError reports a uniqueness violation on a natural key.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

// DonorNotFoundError is a referential failure on an envelope number.
type DonorNotFoundError struct {
	EnvelopeNumber string
}

func (e *DonorNotFoundError) Error() string {
	return fmt.Sprintf("no donor with envelope number %s", e.EnvelopeNumber)
}

func (e *DonorNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
