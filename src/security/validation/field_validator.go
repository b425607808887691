// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/models"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxLibelleLength       = 255
	MaxDescriptionLength   = 1024
	MaxNameLength          = 100
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// ValidateRequiredText combines the not-empty and max-length checks.
func ValidateRequiredText(s string, maxLength int, fieldName string) error {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return err
	}
	return ValidateStringMaxLength(s, maxLength, fieldName)
}

// --- Numeric Validators ---

// ValidatePositiveAmount rejects zero and negative amounts.
func ValidatePositiveAmount(d decimal.Decimal, fieldName string) error {
	if !d.IsPositive() {
		logger.L.Warn("Non-positive amount rejected", "field", fieldName, "value", d.String())
		return fmt.Errorf("%w: %s must be greater than zero", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateAmountString parses a decimal amount such as "12.50".
func ValidateAmountString(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid amount: %v", ErrValidationFailed, fieldName, s, err)
	}
	return d, nil
}

// ValidateIntRange checks that val lies within [minVal, maxVal].
func ValidateIntRange(val, minVal, maxVal int, fieldName string) error {
	if val < minVal || val > maxVal {
		logger.L.Warn("Integer value out of range", "field", fieldName, "value", val, "min", minVal, "max", maxVal)
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrValidationFailed, fieldName, minVal, maxVal, val)
	}
	return nil
}

// ValidateIntString parses a string to int and checks if it's within a range.
func ValidateIntString(s, fieldName string, minVal, maxVal int) (int, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %s ('%s') is not a valid integer: %v", ErrValidationFailed, fieldName, s, err)
	}
	if err := ValidateIntRange(val, minVal, maxVal, fieldName); err != nil {
		return 0, err
	}
	return val, nil
}

// --- Date Validator ---

// ValidateDateString checks if a string is a valid calendar date in "YYYY-MM-DD" format.
func ValidateDateString(s, fieldName string) (models.Date, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return models.Date{}, err
	}
	d, err := models.ParseDate(trimmed)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD)", ErrValidationFailed, fieldName, s)
	}
	if d.String() != trimmed {
		return models.Date{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return d, nil
}

// ValidateDateOrder checks that end is not before start.
func ValidateDateOrder(start, end models.Date, startField, endField string) error {
	if end.Before(start) {
		return fmt.Errorf("%w: %s (%s) cannot be before %s (%s)", ErrValidationFailed, endField, end, startField, start)
	}
	return nil
}

// --- Enum Validators ---

func ValidateFrequency(f models.Frequency) error {
	if !f.IsValid() {
		return fmt.Errorf("%w: frequence '%s' is not supported", ErrValidationFailed, f)
	}
	return nil
}

func ValidateWeekendPolicy(p models.WeekendPolicy) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: tolerance_weekend '%s' is not supported", ErrValidationFailed, p)
	}
	return nil
}

func ValidateTypeOperation(t models.TypeOperation) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: type_operation '%s' is not supported", ErrValidationFailed, t)
	}
	return nil
}
