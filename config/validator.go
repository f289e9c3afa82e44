package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/teranos/screencap/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "host.frame_rate")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// prefixRegex keeps filename prefixes portable
var prefixRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateHost()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Output.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Value:   c.Output.Dir,
			Message: "must not be empty",
		})
	}
	if !prefixRegex.MatchString(c.Output.Prefix) {
		errors = append(errors, ValidationError{
			Field:   "output.prefix",
			Value:   c.Output.Prefix,
			Message: "must start with a letter or digit and contain only letters, digits, '-' or '_'",
		})
	}

	return errors
}

func (c *Config) validateHost() []ValidationError {
	var errors []ValidationError

	// Same bounds as the rendered resolution setting
	const minSize, maxSize = 2, 4096
	for _, dim := range []struct {
		field string
		value int
	}{
		{"host.width", c.Host.Width},
		{"host.height", c.Host.Height},
	} {
		if dim.value < minSize || dim.value > maxSize {
			errors = append(errors, ValidationError{
				Field:   dim.field,
				Value:   dim.value,
				Message: fmt.Sprintf("must be between %d and %d", minSize, maxSize),
			})
		}
	}

	if c.Host.FrameRate < 1 || c.Host.FrameRate > 240 {
		errors = append(errors, ValidationError{
			Field:   "host.frame_rate",
			Value:   c.Host.FrameRate,
			Message: "must be between 1 and 240",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}
