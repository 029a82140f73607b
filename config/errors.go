package config

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidConfig matches every ConfigurationError via errors.Is.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// A ConfigurationError reports an invalid setup parameter. It is returned
// before any build work starts and is never silently replaced by a default.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidConfig) checks.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Invalid creates a ConfigurationError.
func Invalid(field string, value interface{}, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}
