// Package config provides configuration management for the reconciliation tool.
package config

import (
	"fmt"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error with user-friendly message.
type ValidationError struct {
	Field   string      // Field path (e.g., "datasources.nova.endpoint")
	Tag     string      // Validation tag that failed (e.g., "required", "url")
	Value   interface{} // Actual value that failed validation
	Message string      // User-friendly error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// validate is the package-level validator instance.
var validate *validator.Validate

// init initializes the validator with custom validations.
func init() {
	validate = validator.New()

	// Report field paths the way they are written in the YAML file.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("timezone", validateTimezone)
}

// Validate validates the configuration and returns user-friendly error messages.
func Validate(cfg *Config) error {
	var validationErrors ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, &ValidationError{
					Field:   formatFieldName(fe.Namespace()),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: translateError(fe),
				})
			}
		}
	}

	if errs := validateDatasources(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if errs := validateFanOut(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if errs := validateIgnoreLabels(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if errs := validateTimezoneConfig(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

// validateTimezone is a custom validator for timezone strings.
func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true // Empty is allowed, will use default
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// validateDatasources checks that a control-plane inventory source is configured.
// Without one there is no ground truth to reconcile against.
func validateDatasources(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Datasources.InventoryFile != "" {
		return errors
	}

	if cfg.Datasources.Nova.Endpoint == "" {
		errors = append(errors, &ValidationError{
			Field:   "datasources.nova.endpoint",
			Tag:     "required_without_inventory_file",
			Value:   "",
			Message: "this field is required when datasources.inventory_file is not set",
		})
	}
	if cfg.Datasources.Nova.Token == "" {
		errors = append(errors, &ValidationError{
			Field:   "datasources.nova.token",
			Tag:     "required_without_inventory_file",
			Value:   "",
			Message: "this field is required when datasources.inventory_file is not set",
		})
	}

	return errors
}

// validateFanOut validates the relationships between fan-out limits.
func validateFanOut(cfg *Config) ValidationErrors {
	var errors ValidationErrors
	f := cfg.FanOut

	if f.HostTimeout <= 0 {
		errors = append(errors, &ValidationError{
			Field:   "fanout.host_timeout",
			Tag:     "positive",
			Value:   f.HostTimeout,
			Message: "host timeout must be greater than zero",
		})
	}

	if f.Deadline < f.HostTimeout {
		errors = append(errors, &ValidationError{
			Field:   "fanout.deadline",
			Tag:     "deadline_order",
			Value:   fmt.Sprintf("host_timeout=%v, deadline=%v", f.HostTimeout, f.Deadline),
			Message: fmt.Sprintf("deadline (%v) must not be shorter than host timeout (%v)", f.Deadline, f.HostTimeout),
		})
	}

	if f.Concurrency > 0 && f.BatchSize > f.Concurrency {
		errors = append(errors, &ValidationError{
			Field:   "fanout.batch_size",
			Tag:     "batch_order",
			Value:   fmt.Sprintf("batch_size=%d, concurrency=%d", f.BatchSize, f.Concurrency),
			Message: fmt.Sprintf("batch size (%d) must not exceed concurrency (%d)", f.BatchSize, f.Concurrency),
		})
	}

	if f.BatchPause < 0 {
		errors = append(errors, &ValidationError{
			Field:   "fanout.batch_pause",
			Tag:     "gte",
			Value:   f.BatchPause,
			Message: "batch pause must not be negative",
		})
	}

	return errors
}

// validateIgnoreLabels checks that every ignore pattern is a valid glob.
func validateIgnoreLabels(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	for i, pattern := range cfg.Reconcile.IgnoreLabels {
		if _, err := path.Match(pattern, ""); err != nil {
			errors = append(errors, &ValidationError{
				Field:   fmt.Sprintf("reconcile.ignore_labels[%d]", i),
				Tag:     "glob",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			})
		}
	}

	return errors
}

// validateTimezoneConfig validates the timezone configuration.
func validateTimezoneConfig(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Report.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
			errors = append(errors, &ValidationError{
				Field:   "report.timezone",
				Tag:     "timezone",
				Value:   cfg.Report.Timezone,
				Message: fmt.Sprintf("invalid timezone: %s", cfg.Report.Timezone),
			})
		}
	}

	return errors
}

// formatFieldName converts the validator field namespace to a user-friendly format.
// Example: "Config.datasources.nova.endpoint" -> "datasources.nova.endpoint"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:] // Remove "Config"
	}

	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}

	return strings.Join(parts, ".")
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return fmt.Sprintf("invalid URL format: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	case "dive":
		return fmt.Sprintf("invalid value in list: %v", fe.Value())
	case "timezone":
		return fmt.Sprintf("invalid timezone: %v", fe.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
