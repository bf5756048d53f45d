package submission

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured means no write credentials exist; retrying will not help.
	ErrNotConfigured = errors.New("submission: document store is not configured")
	// ErrStoreUnavailable wraps transient store failures. Callers may retry.
	ErrStoreUnavailable = errors.New("submission: document store unavailable")
	// ErrInvalidTransition is returned for illegal form state changes.
	ErrInvalidTransition = errors.New("submission: invalid form state transition")
)

// FieldError names a field that failed validation and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError reports incomplete caller input. It is returned before any
// network call is made.
type ValidationError struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("submission: %s: %s", e.Kind, e.Message)
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+"("+f.Rule+")")
	}
	return fmt.Sprintf("submission: %s: %s [%s]", e.Kind, e.Message, strings.Join(names, ", "))
}
