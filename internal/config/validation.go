package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks a loaded configuration for values the agent cannot run
// with. It collects every problem instead of stopping at the first.
func Validate(cfg Config) ValidationErrors {
	var verrs ValidationErrors

	if err := ValidateRequired("runtime.endpoint", cfg.Runtime.Endpoint, "the agent"); err != nil {
		verrs = append(verrs, err.(ValidationError))
	}
	if err := ValidateRequired("manifests.directory", cfg.Manifests.Directory, "the agent"); err != nil {
		verrs = append(verrs, err.(ValidationError))
	}

	if cfg.Reconcile.DebounceWindow.Std() <= 0 {
		verrs.Add("reconcile.debounceWindow", "must be positive", cfg.Reconcile.DebounceWindow.String())
	}
	if cfg.Reconcile.RefreshInterval.Std() <= 0 {
		verrs.Add("reconcile.refreshInterval", "must be positive", cfg.Reconcile.RefreshInterval.String())
	}
	if cfg.Reconcile.DebounceWindow.Std() > 0 && cfg.Reconcile.RefreshInterval.Std() > 0 &&
		cfg.Reconcile.RefreshInterval.Std() <= cfg.Reconcile.DebounceWindow.Std() {
		verrs.Add("reconcile.refreshInterval", "must be longer than the debounce window", cfg.Reconcile.RefreshInterval.String())
	}
	if cfg.Reconcile.ImagePullConcurrency < 1 {
		verrs.Add("reconcile.imagePullConcurrency", "must be at least 1", cfg.Reconcile.ImagePullConcurrency)
	}

	if err := ValidateOneOf("log.level", cfg.Log.Level, []string{"debug", "info", "warn", "error"}); err != nil {
		verrs = append(verrs, err.(ValidationError))
	}
	if err := ValidateOneOf("log.format", cfg.Log.Format, []string{"text", "json"}); err != nil {
		verrs = append(verrs, err.(ValidationError))
	}

	return verrs
}
