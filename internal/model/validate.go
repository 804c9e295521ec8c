package model

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes one violated schema rule.
type ValidationError struct {
	// Field is the offending field, optionally prefixed with its position
	// in the document (e.g. "upcoming[2].priority").
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	return b.String()
}

// WithPrefix returns a copy whose Field is qualified by prefix.
func (e *ValidationError) WithPrefix(prefix string) *ValidationError {
	out := *e
	if out.Field == "" {
		out.Field = prefix
	} else {
		out.Field = prefix + "." + out.Field
	}
	return &out
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	MinPriority = 0
	MaxPriority = 10
)

// Normalize trims the name and fills defaults that the data file may omit.
func (e *Event) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	if e.Frequency.Kind == "" {
		e.Frequency.Kind = Once
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

// Validate checks the event invariants. All violations are reported,
// joined with errors.Join.
func (e Event) Validate() error {
	var errs []error

	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, &ValidationError{Field: "name", Message: "must not be empty"})
	}
	if e.Priority < MinPriority || e.Priority > MaxPriority {
		errs = append(errs, &ValidationError{
			Field:   "priority",
			Value:   fmt.Sprint(e.Priority),
			Message: fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority),
		})
	}
	if _, ok := ParseFrequencyKind(string(e.Frequency.Kind)); !ok && e.Frequency.Kind != "" {
		errs = append(errs, &ValidationError{Field: "frequency", Value: string(e.Frequency.Kind), Message: "must be one of " + kindList()})
	}
	if e.IsTodo() && e.Recurs() {
		errs = append(errs, &ValidationError{Field: "start", Message: fmt.Sprintf("must be defined if frequency is not %q", Once)})
	}
	if e.IsTodo() && e.HasEnd() {
		errs = append(errs, &ValidationError{Field: "end", Message: "cannot be defined if start is null"})
	}
	if !e.IsTodo() && e.HasEnd() && e.End.Before(e.Start) {
		errs = append(errs, &ValidationError{Field: "end", Value: e.End.String(), Message: "start must be before end"})
	}

	return errors.Join(errs...)
}
