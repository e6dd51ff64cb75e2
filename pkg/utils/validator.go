package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@\-]{0,127}$`)
	controlRegex    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateIdentifier checks an external identifier (user, medication, institution)
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !identifierRegex.MatchString(value) {
		return fmt.Errorf("%s has invalid format: %q", field, value)
	}
	return nil
}

// ValidateText checks a required free-text field against a rune limit
func ValidateText(field, value string, maxRunes int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return ValidateMaxLength(field, value, maxRunes)
}

// ValidateMaxLength checks an optional free-text field against a rune limit
func ValidateMaxLength(field, value string, maxRunes int) error {
	if n := utf8.RuneCountInString(value); n > maxRunes {
		return fmt.Errorf("%s exceeds %d characters (got %d)", field, maxRunes, n)
	}
	return nil
}

// ValidateDateRange checks that end, when given, is not before start
func ValidateDateRange(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if end != nil && end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}

// SanitizeString removes control characters (newlines and tabs are kept) and trims spaces
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}
