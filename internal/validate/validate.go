// Package validate provides configuration validation utilities for the
// entrypoint's config packages.
//
// All functions leverage the go-playground/validator library for standardized
// validation behavior, replacing manual checks scattered across config code
// with centralized, consistent validation using the library's built-in tags.
package validate

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance. The library caches struct metadata internally,
// so a single instance serves all callers.
var v = validator.New()

// ValidateField validates a single value against a validator tag expression
// such as "required,min=1,max=65535" or "required,hostname_port".
func ValidateField(value any, tag string) error {
	if err := v.Var(value, tag); err != nil {
		return fmt.Errorf("validation failed for tag %q: %w", tag, err)
	}
	return nil
}

// ValidateRequiredString validates that a string field is not empty.
//
// Critical for ensuring required configuration such as the data directory and
// config artifact path are specified before any filesystem mutation happens.
func ValidateRequiredString(value, fieldName string) error {
	if err := ValidateField(value, "required"); err != nil {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidatePositiveTimeout validates that a duration is positive (> 0).
// Ensures retry intervals never cause busy loops or immediate failures.
func ValidatePositiveTimeout(timeout time.Duration, name string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}
