// -----------------------------------------------------------------------
// Errors - Submission and lifecycle error taxonomy
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimitExceeded rejects a submission at admission time
	ErrRateLimitExceeded = errors.New("analyzer rate limit exceeded")

	// ErrNotFound covers absent entities and cross-organization reads
	ErrNotFound = errors.New("not found")
)

// AttributeErrorKind distinguishes absent fields from malformed ones
type AttributeErrorKind string

const (
	AttributeMissing AttributeErrorKind = "missing"
	AttributeInvalid AttributeErrorKind = "invalid"
)

// AttributeError is one fault in a submission or configuration
type AttributeError struct {
	Kind   AttributeErrorKind
	Name   string
	Detail string
}

func (e *AttributeError) Error() string {
	switch e.Kind {
	case AttributeMissing:
		return fmt.Sprintf("attribute %q is missing", e.Name)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("attribute %q is invalid: %s", e.Name, e.Detail)
		}
		return fmt.Sprintf("attribute %q is invalid", e.Name)
	}
}

// MissingAttributeError reports a required field that is absent
func MissingAttributeError(name string) *AttributeError {
	return &AttributeError{Kind: AttributeMissing, Name: name}
}

// InvalidAttributeError reports a field present in an unaccepted shape
func InvalidAttributeError(name, detail string) *AttributeError {
	return &AttributeError{Kind: AttributeInvalid, Name: name, Detail: detail}
}

// AttributeCheckingError aggregates all accumulated attribute faults so a
// caller sees every problem at once instead of fixing them one by one.
type AttributeCheckingError struct {
	Errors []*AttributeError
}

func (e *AttributeCheckingError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "attribute checking failed: " + strings.Join(msgs, "; ")
}

// ErrorCollector accumulates attribute faults during parsing or validation
type ErrorCollector struct {
	errs []*AttributeError
}

// Add records a fault; nil is ignored
func (c *ErrorCollector) Add(err *AttributeError) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Missing records an absent required field
func (c *ErrorCollector) Missing(name string) {
	c.Add(MissingAttributeError(name))
}

// Invalid records a malformed field
func (c *ErrorCollector) Invalid(name, detail string) {
	c.Add(InvalidAttributeError(name, detail))
}

// Err returns the aggregate error, or nil when no faults were recorded
func (c *ErrorCollector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AttributeCheckingError{Errors: c.errs}
}
