package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxSourceSize = 512 * 1024 // program source submitted to a frame
)

// String length limits
const (
	MaxOriginLength      = 2048
	MaxProfileNameLength = 64
)

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateSource checks a program's source text. Empty programs are allowed.
func ValidateSource(source string) error {
	if len(source) > MaxSourceSize {
		return fmt.Errorf("source size %d bytes exceeds maximum %d bytes", len(source), MaxSourceSize)
	}
	if !utf8.ValidString(source) {
		return fmt.Errorf("source is not valid UTF-8")
	}
	if strings.Contains(source, "\x00") {
		return fmt.Errorf("source contains invalid characters")
	}
	return nil
}

// ValidateOrigin checks that origin is a serialized web origin,
// scheme://host[:port] with nothing after the host.
func ValidateOrigin(origin string) error {
	if err := ValidateString(origin, "origin", 1, MaxOriginLength, true); err != nil {
		return err
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin %q must use http or https", origin)
	}
	if u.Host == "" || u.User != nil {
		return fmt.Errorf("origin %q must name a host", origin)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("origin %q must not have anything after the host", origin)
	}
	return nil
}

// ValidateID validates an ID field
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxProfileNameLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}
